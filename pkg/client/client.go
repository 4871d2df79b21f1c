// Package client is a typed Go client for the helpdesk API. Each Client
// keeps its own cookie jar, so one process can drive several sessions at
// once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/id"
)

// APIError is a structured Error envelope returned by the server. Transport
// failures are returned as ordinary errors instead.
type APIError struct {
	Status          int
	UnderlyingError string
	Report          string
	TraceID         string
	SpanID          string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d, trace %s): %s", e.Status, e.TraceID, e.Report)
}

// Client talks to one helpdesk deployment as one session.
type Client struct {
	base *url.URL
	http *http.Client
}

// New builds a client with a fresh cookie jar.
func New(baseURL string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{base: base, http: &http.Client{Jar: jar}}, nil
}

func do[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var zero T

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return zero, err
		}
		reqBody = bytes.NewReader(raw)
	}

	rel, err := url.Parse(path)
	if err != nil {
		return zero, err
	}
	target := c.base.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return zero, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, err
	}

	var envelope struct {
		Status  string          `json:"status"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return zero, fmt.Errorf("unparseable response (status %d): %w", resp.StatusCode, err)
	}

	switch envelope.Status {
	case dto.StatusSuccess:
		var payload T
		if len(envelope.Payload) > 0 && string(envelope.Payload) != "null" {
			if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
				return zero, err
			}
		}
		return payload, nil
	case dto.StatusError:
		var apiErr dto.APIError
		if err := json.Unmarshal(envelope.Payload, &apiErr); err != nil {
			return zero, fmt.Errorf("unparseable error payload (status %d): %w", resp.StatusCode, err)
		}
		return zero, &APIError{
			Status:          resp.StatusCode,
			UnderlyingError: apiErr.UnderlyingError,
			Report:          apiErr.Report,
			TraceID:         apiErr.TraceID,
			SpanID:          apiErr.SpanID,
		}
	default:
		return zero, fmt.Errorf("unknown envelope status %q", envelope.Status)
	}
}

type empty = struct{}

// TelegramLogin authenticates with a Telegram widget payload and stores the
// session cookie.
func (c *Client) TelegramLogin(ctx context.Context, data auth.TelegramLoginData) error {
	_, err := do[empty](ctx, c, http.MethodPost, "/api/login/telegram", data)
	return err
}

// FakeLogin authenticates as an arbitrary user (internal routes only).
func (c *Client) FakeLogin(ctx context.Context, userID id.ID) error {
	_, err := do[empty](ctx, c, http.MethodPost, "/api/fake-login/"+userID.String(), nil)
	return err
}

// CreateUser registers a user under the given id (internal routes only).
func (c *Client) CreateUser(ctx context.Context, userID id.ID, cmd domain.CreateUser) (domain.User, error) {
	return do[domain.User](ctx, c, http.MethodPut, "/api/users/"+userID.String(), cmd)
}

// UpdateUser applies a user mutation command (internal routes only).
func (c *Client) UpdateUser(ctx context.Context, userID id.ID, update domain.UserUpdate) (domain.User, error) {
	return do[domain.User](ctx, c, http.MethodPost, "/api/users/"+userID.String(), update)
}

// LookupIdentity resolves an identity key to its owning user id (internal
// routes only).
func (c *Client) LookupIdentity(ctx context.Context, identity string) (id.ID, error) {
	return do[id.ID](ctx, c, http.MethodGet, "/api/user-identities/"+url.PathEscape(identity), nil)
}

// Me returns the authenticated user's full view.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	return do[domain.User](ctx, c, http.MethodGet, "/api/users/me", nil)
}

// UserProfile returns a user's public display profile.
func (c *Client) UserProfile(ctx context.Context, userID id.ID) (domain.UserProfile, error) {
	return do[domain.UserProfile](ctx, c, http.MethodGet, "/api/users/"+userID.String()+"/profile", nil)
}

// UserGroups lists the groups a user belongs to.
func (c *Client) UserGroups(ctx context.Context, userID id.ID) (dto.WithUsers[[]domain.Group], error) {
	return do[dto.WithUsers[[]domain.Group]](ctx, c, http.MethodGet, "/api/users/"+userID.String()+"/groups", nil)
}

// CreateGroup registers a group under the given id.
func (c *Client) CreateGroup(ctx context.Context, groupID id.ID, cmd domain.CreateGroup) (domain.Group, error) {
	return do[domain.Group](ctx, c, http.MethodPut, "/api/groups/"+groupID.String(), cmd)
}

// UpdateGroup applies a group mutation command.
func (c *Client) UpdateGroup(ctx context.Context, groupID id.ID, update domain.GroupUpdate) (domain.Group, error) {
	return do[domain.Group](ctx, c, http.MethodPost, "/api/groups/"+groupID.String(), update)
}

// GetGroup returns the group with member profiles.
func (c *Client) GetGroup(ctx context.Context, groupID id.ID) (dto.WithUsers[domain.Group], error) {
	return do[dto.WithUsers[domain.Group]](ctx, c, http.MethodGet, "/api/groups/"+groupID.String(), nil)
}

// GroupTickets lists the tickets addressed to the group.
func (c *Client) GroupTickets(ctx context.Context, groupID id.ID) (dto.WithGroupsAndUsers[[]domain.TicketListItem], error) {
	return do[dto.WithGroupsAndUsers[[]domain.TicketListItem]](ctx, c, http.MethodGet, "/api/groups/"+groupID.String()+"/tickets", nil)
}

// CreateTicket opens a ticket under the given id.
func (c *Client) CreateTicket(ctx context.Context, ticketID id.ID, cmd domain.CreateTicket) (domain.Ticket, error) {
	return do[domain.Ticket](ctx, c, http.MethodPut, "/api/tickets/"+ticketID.String(), cmd)
}

// UpdateTicket applies a ticket mutation command.
func (c *Client) UpdateTicket(ctx context.Context, ticketID id.ID, update domain.TicketUpdate) (domain.Ticket, error) {
	return do[domain.Ticket](ctx, c, http.MethodPost, "/api/tickets/"+ticketID.String(), update)
}

// GetTicket returns the full ticket view with its timeline.
func (c *Client) GetTicket(ctx context.Context, ticketID id.ID) (dto.WithGroupsAndUsers[domain.Ticket], error) {
	return do[dto.WithGroupsAndUsers[domain.Ticket]](ctx, c, http.MethodGet, "/api/tickets/"+ticketID.String(), nil)
}

// OwnedTickets lists the caller's created tickets.
func (c *Client) OwnedTickets(ctx context.Context) (dto.WithGroupsAndUsers[[]domain.TicketListItem], error) {
	return do[dto.WithGroupsAndUsers[[]domain.TicketListItem]](ctx, c, http.MethodGet, "/api/tickets/owned", nil)
}

// AssignedTickets lists the tickets assigned to the caller.
func (c *Client) AssignedTickets(ctx context.Context) (dto.WithGroupsAndUsers[[]domain.TicketListItem], error) {
	return do[dto.WithGroupsAndUsers[[]domain.TicketListItem]](ctx, c, http.MethodGet, "/api/tickets/assigned", nil)
}

func (c *Client) search(ctx context.Context, kind, query string) (dto.SearchResults[json.RawMessage], error) {
	path := "/api/search/" + kind + "?q=" + url.QueryEscape(query)
	return do[dto.SearchResults[json.RawMessage]](ctx, c, http.MethodGet, path, nil)
}

// SearchUsers searches user views.
func (c *Client) SearchUsers(ctx context.Context, query string) (dto.SearchResults[json.RawMessage], error) {
	return c.search(ctx, "users", query)
}

// SearchGroups searches group views.
func (c *Client) SearchGroups(ctx context.Context, query string) (dto.SearchResults[json.RawMessage], error) {
	return c.search(ctx, "groups", query)
}

// SearchTickets searches ticket views.
func (c *Client) SearchTickets(ctx context.Context, query string) (dto.SearchResults[json.RawMessage], error) {
	return c.search(ctx, "tickets", query)
}

// InitiateUpload starts the upload handshake.
func (c *Client) InitiateUpload(ctx context.Context, meta domain.UploadMetadata) (domain.InitiatedUpload, error) {
	return do[domain.InitiatedUpload](ctx, c, http.MethodPost, "/api/upload/initiate", meta)
}

// UploadBlob sends the bytes to the signed target handed out by
// InitiateUpload.
func (c *Client) UploadBlob(ctx context.Context, initiated domain.InitiatedUpload, blob io.Reader) error {
	target := c.base.JoinPath(initiated.URL)
	q := target.Query()
	for k, v := range initiated.Fields {
		q.Set(k, v)
	}
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), blob)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("blob upload failed (status %d): %s", resp.StatusCode, raw)
	}
	return nil
}

// FinalizeUpload seals the upload.
func (c *Client) FinalizeUpload(ctx context.Context, uploadID id.ID) error {
	_, err := do[empty](ctx, c, http.MethodPost, "/api/upload/"+uploadID.String()+"/finalize", nil)
	return err
}

// DownloadFile fetches a finalized blob.
func (c *Client) DownloadFile(ctx context.Context, uploadID id.ID) (io.ReadCloser, error) {
	target := c.base.JoinPath("/api/upload/" + uploadID.String() + "/file")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("download failed (status %d): %s", resp.StatusCode, raw)
	}
	return resp.Body, nil
}
