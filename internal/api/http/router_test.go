package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	gohttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/id"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/search"
	"github.com/spec-kit/helpdesk/internal/service"
)

// session is a lightweight test client over app.Test that replays cookies
// the way a browser would.
type session struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	store := repository.NewMemory()
	dispatcher := events.NewInMemoryDispatcher(logger)
	searcher := search.NewMemorySearcher()
	search.NewIndexer(searcher, dispatcher)

	authCfg := config.AuthConfig{CookieSecret: "test-secret", CookieTTLMinutes: 60}

	userService := service.NewUserService(service.UserDependencies{
		UserRepo:       store.Users(),
		IdentityRepo:   store.Identities(),
		GroupRepo:      store.Groups(),
		UserGroupsRepo: store.UserGroups(),
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	groupService := service.NewGroupService(service.GroupDependencies{
		GroupRepo:      store.Groups(),
		UserRepo:       store.Users(),
		UserGroupsRepo: store.UserGroups(),
		TicketRepo:     store.Tickets(),
		ListingRepo:    store.TicketListings(),
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets(),
		UserRepo:    store.Users(),
		GroupRepo:   store.Groups(),
		ListingRepo: store.TicketListings(),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	loginService := service.NewLoginService(service.LoginDependencies{
		UserRepo:     store.Users(),
		IdentityRepo: store.Identities(),
		UserService:  userService,
		Auth:         authCfg,
		Logger:       logger,
	})
	fileStore, err := persistence.NewFileStore(t.TempDir())
	require.NoError(t, err)
	uploadCfg := config.UploadConfig{URLTTLMinutes: 15, MaxSizeBytes: 8 << 20}
	uploadService := service.NewUploadService(service.UploadDependencies{
		UploadRepo: store.Uploads(),
		Store:      fileStore,
		Secret:     authCfg.CookieSecret,
		Upload:     uploadCfg,
		Logger:     logger,
	})

	cookies := auth.NewCookieManager(authCfg)

	app := fiber.New(fiber.Config{BodyLimit: uploadCfg.BodyLimit()})
	RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("test", "test", nil, nil),
		Users:          handlers.NewUsersHandler(userService),
		Groups:         handlers.NewGroupsHandler(groupService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Login:          handlers.NewLoginHandler(loginService, cookies),
		Search:         handlers.NewSearchHandler(searcher),
		Upload:         handlers.NewUploadHandler(uploadService),
		AuthMiddleware: auth.NewMiddleware(cookies),
		ExposeInternal: true,
	})
	return app
}

func newSession(t *testing.T, app *fiber.App) *session {
	return &session{t: t, app: app, cookies: make(map[string]string)}
}

func (s *session) do(method, path string, body any) (*gohttp.Response, []byte) {
	s.t.Helper()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reqBody = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range s.cookies {
		req.AddCookie(&gohttp.Cookie{Name: name, Value: value})
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	for _, cookie := range resp.Cookies() {
		s.cookies[cookie.Name] = cookie.Value
	}

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp, raw
}

func (s *session) success(method, path string, body any, payload any) {
	s.t.Helper()
	resp, raw := s.do(method, path, body)
	require.Less(s.t, resp.StatusCode, 300, "unexpected response: %s", raw)

	var envelope struct {
		Status  string          `json:"status"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(s.t, json.Unmarshal(raw, &envelope))
	require.Equal(s.t, "Success", envelope.Status, "unexpected envelope: %s", raw)
	if payload != nil {
		require.NoError(s.t, json.Unmarshal(envelope.Payload, payload))
	}
}

func (s *session) registerAndLogin(name string, telegramID int64) id.ID {
	s.t.Helper()
	userID := id.Generate()
	s.success(gohttp.MethodPut, "/api/users/"+userID.String(), domain.CreateUser{
		Profile: domain.ExternalUserProfile{
			Telegram: &domain.TelegramProfile{ID: telegramID, FirstName: name},
		},
	}, nil)
	s.success(gohttp.MethodPost, "/api/fake-login/"+userID.String(), nil, nil)
	return userID
}

func TestLoginAndMe(t *testing.T) {
	app := newTestApp(t)
	s := newSession(t, app)
	userID := s.registerAndLogin("Alice", 1)

	var me domain.User
	s.success(gohttp.MethodGet, "/api/users/me", nil, &me)
	assert.Equal(t, userID, me.ID)
	assert.Equal(t, "Alice", me.Name)
}

func TestUnauthenticatedRequestGetsErrorEnvelope(t *testing.T) {
	app := newTestApp(t)
	s := newSession(t, app)

	resp, raw := s.do(gohttp.MethodGet, "/api/users/me", nil)
	assert.Equal(t, gohttp.StatusUnauthorized, resp.StatusCode)

	var envelope struct {
		Status  string `json:"status"`
		Payload struct {
			UnderlyingError string `json:"underlying_error"`
			Report          string `json:"report"`
			TraceID         string `json:"trace_id"`
			SpanID          string `json:"span_id"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, "Error", envelope.Status)
	assert.NotEmpty(t, envelope.Payload.Report)
	assert.NotEmpty(t, envelope.Payload.TraceID)
	assert.NotEmpty(t, envelope.Payload.SpanID)
}

func TestUnknownRouteGetsErrorEnvelope(t *testing.T) {
	app := newTestApp(t)
	s := newSession(t, app)

	resp, raw := s.do(gohttp.MethodGet, "/api/nonsense", nil)
	assert.Equal(t, gohttp.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(raw), `"status":"Error"`)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)

	student := newSession(t, app)
	studentID := student.registerAndLogin("Student", 1)

	manager := newSession(t, app)
	managerID := manager.registerAndLogin("Manager", 2)

	groupID := id.Generate()
	manager.success(gohttp.MethodPut, "/api/groups/"+groupID.String(),
		domain.CreateGroup{Title: "Dorm Manager"}, nil)

	ticketID := id.Generate()
	student.success(gohttp.MethodPut, "/api/tickets/"+ticketID.String(), domain.CreateTicket{
		Destination: domain.TicketDestination{Type: domain.DestinationGroup, ID: groupID},
		Title:       "Broken chair",
		Body:        "The chair in room 12 is broken",
	}, nil)

	manager.success(gohttp.MethodPost, "/api/tickets/"+ticketID.String(), domain.TicketUpdate{
		SendMessage: &domain.SendTicketMessage{Body: "Hey, we'll fix it soon."},
	}, nil)
	student.success(gohttp.MethodPost, "/api/tickets/"+ticketID.String(), domain.TicketUpdate{
		SendMessage: &domain.SendTicketMessage{Body: "Thanks, I'll be waiting."},
	}, nil)

	var view struct {
		Users   map[id.ID]domain.UserProfile  `json:"users"`
		Groups  map[id.ID]domain.GroupProfile `json:"groups"`
		Payload domain.Ticket                 `json:"payload"`
	}
	student.success(gohttp.MethodGet, "/api/tickets/"+ticketID.String(), nil, &view)

	require.Len(t, view.Payload.Timeline, 3)
	assert.Equal(t, studentID, view.Payload.Timeline[0].Content.Message.From)
	assert.Equal(t, managerID, view.Payload.Timeline[1].Content.Message.From)
	assert.Equal(t, studentID, view.Payload.Timeline[2].Content.Message.From)
	assert.Contains(t, view.Users, studentID)
	assert.Contains(t, view.Users, managerID)
	assert.Contains(t, view.Groups, groupID)

	var owned struct {
		Payload []domain.TicketListItem `json:"payload"`
	}
	student.success(gohttp.MethodGet, "/api/tickets/owned", nil, &owned)
	require.Len(t, owned.Payload, 1)
	assert.Equal(t, domain.TicketStatusPending, owned.Payload[0].Status)
	assert.Nil(t, owned.Payload[0].Assignee)
	assert.Equal(t, groupID, owned.Payload[0].Destination.ID)
}

func TestDuplicateTicketCreateConflicts(t *testing.T) {
	app := newTestApp(t)
	s := newSession(t, app)
	userID := s.registerAndLogin("Alice", 1)

	ticketID := id.Generate()
	create := domain.CreateTicket{
		Destination: domain.TicketDestination{Type: domain.DestinationUser, ID: userID},
		Title:       "Note to self",
		Body:        "Remember",
	}
	s.success(gohttp.MethodPut, "/api/tickets/"+ticketID.String(), create, nil)

	resp, _ := s.do(gohttp.MethodPut, "/api/tickets/"+ticketID.String(), create)
	assert.Equal(t, gohttp.StatusConflict, resp.StatusCode)
}

func TestSearchRecallOverHTTP(t *testing.T) {
	app := newTestApp(t)
	s := newSession(t, app)

	userID := id.Generate()
	username := "Abracadabra1337"
	s.success(gohttp.MethodPut, "/api/users/"+userID.String(), domain.CreateUser{
		Profile: domain.ExternalUserProfile{
			Telegram: &domain.TelegramProfile{ID: 1, FirstName: "Abra", Username: &username},
		},
	}, nil)
	s.success(gohttp.MethodPost, "/api/fake-login/"+userID.String(), nil, nil)

	for _, query := range []string{"Abracadabra1337", "Abra", "abra"} {
		var results struct {
			TopHits []struct {
				Value      domain.User       `json:"value"`
				Highlights map[string]string `json:"highlights"`
			} `json:"top_hits"`
		}
		s.success(gohttp.MethodGet, "/api/search/users?q="+query, nil, &results)
		require.Len(t, results.TopHits, 1, "query %q", query)
		assert.Equal(t, userID, results.TopHits[0].Value.ID)
	}
}

func TestUploadHandshakeOverHTTP(t *testing.T) {
	app := newTestApp(t)
	s := newSession(t, app)
	s.registerAndLogin("Alice", 1)

	content := "file bytes"
	var initiated domain.InitiatedUpload
	s.success(gohttp.MethodPost, "/api/upload/initiate", domain.UploadMetadata{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Size:        int64(len(content)),
	}, &initiated)

	blobURL := fmt.Sprintf("%s?token=%s&expires=%s", initiated.URL, initiated.Fields["token"], initiated.Fields["expires"])
	req := httptest.NewRequest(gohttp.MethodPost, blobURL, bytes.NewReader([]byte(content)))
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, gohttp.StatusOK, resp.StatusCode)

	s.success(gohttp.MethodPost, "/api/upload/"+initiated.ID.String()+"/finalize", nil, nil)

	fileResp, raw := s.do(gohttp.MethodGet, "/api/upload/"+initiated.ID.String()+"/file", nil)
	require.Equal(t, gohttp.StatusOK, fileResp.StatusCode)
	assert.Equal(t, content, string(raw))
	assert.Equal(t, "text/plain", fileResp.Header.Get("Content-Type"))
}

func TestBlobLargerThanDefaultBodyCapIsAccepted(t *testing.T) {
	app := newTestApp(t)
	s := newSession(t, app)
	s.registerAndLogin("Alice", 1)

	// above fiber's stock 4 MiB body cap, below the configured upload max
	content := bytes.Repeat([]byte("x"), 5<<20)
	var initiated domain.InitiatedUpload
	s.success(gohttp.MethodPost, "/api/upload/initiate", domain.UploadMetadata{
		Filename:    "big.bin",
		ContentType: "application/octet-stream",
		Size:        int64(len(content)),
	}, &initiated)

	blobURL := fmt.Sprintf("%s?token=%s&expires=%s", initiated.URL, initiated.Fields["token"], initiated.Fields["expires"])
	req := httptest.NewRequest(gohttp.MethodPost, blobURL, bytes.NewReader(content))
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, gohttp.StatusOK, resp.StatusCode)

	s.success(gohttp.MethodPost, "/api/upload/"+initiated.ID.String()+"/finalize", nil, nil)
}

func TestInternalRoutesHiddenByDefault(t *testing.T) {
	logger := zap.NewNop()
	store := repository.NewMemory()
	dispatcher := events.NewInMemoryDispatcher(logger)
	cookies := auth.NewCookieManager(config.AuthConfig{CookieSecret: "s", CookieTTLMinutes: 60})

	userService := service.NewUserService(service.UserDependencies{
		UserRepo:       store.Users(),
		IdentityRepo:   store.Identities(),
		GroupRepo:      store.Groups(),
		UserGroupsRepo: store.UserGroups(),
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	loginService := service.NewLoginService(service.LoginDependencies{
		UserRepo:     store.Users(),
		IdentityRepo: store.Identities(),
		UserService:  userService,
		Auth:         config.AuthConfig{CookieSecret: "s", CookieTTLMinutes: 60},
		Logger:       logger,
	})
	fileStore, err := persistence.NewFileStore(t.TempDir())
	require.NoError(t, err)
	uploadService := service.NewUploadService(service.UploadDependencies{
		UploadRepo: store.Uploads(),
		Store:      fileStore,
		Secret:     "s",
		Upload:     config.UploadConfig{URLTTLMinutes: 15, MaxSizeBytes: 1 << 20},
		Logger:     logger,
	})
	groupService := service.NewGroupService(service.GroupDependencies{
		GroupRepo:      store.Groups(),
		UserRepo:       store.Users(),
		UserGroupsRepo: store.UserGroups(),
		TicketRepo:     store.Tickets(),
		ListingRepo:    store.TicketListings(),
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets(),
		UserRepo:    store.Users(),
		GroupRepo:   store.Groups(),
		ListingRepo: store.TicketListings(),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("test", "test", nil, nil),
		Users:          handlers.NewUsersHandler(userService),
		Groups:         handlers.NewGroupsHandler(groupService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Login:          handlers.NewLoginHandler(loginService, cookies),
		Search:         handlers.NewSearchHandler(search.NewMemorySearcher()),
		Upload:         handlers.NewUploadHandler(uploadService),
		AuthMiddleware: auth.NewMiddleware(cookies),
		ExposeInternal: false,
	})

	s := newSession(t, app)
	resp, _ := s.do(gohttp.MethodPost, "/api/fake-login/"+id.Generate().String(), nil)
	assert.Equal(t, gohttp.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(gohttp.MethodPut, "/api/users/"+id.Generate().String(), domain.CreateUser{})
	assert.Equal(t, gohttp.StatusNotFound, resp.StatusCode)
}
