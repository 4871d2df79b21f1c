package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/id"
)

// Postgres bundles pgx-backed implementations of every repository
// interface. Views are stored as JSONB documents keyed by entity id.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs the postgres store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Users returns the user repository.
func (p *Postgres) Users() UserRepository { return &pgViews[domain.User]{p.pool, "users"} }

// Groups returns the group repository.
func (p *Postgres) Groups() GroupRepository { return &pgViews[domain.Group]{p.pool, "groups"} }

// Tickets returns the ticket repository.
func (p *Postgres) Tickets() TicketRepository { return &pgViews[domain.Ticket]{p.pool, "tickets"} }

// Uploads returns the upload repository.
func (p *Postgres) Uploads() UploadRepository { return &pgViews[domain.Upload]{p.pool, "uploads"} }

// Identities returns the identity index.
func (p *Postgres) Identities() IdentityRepository { return &pgIdentities{p.pool} }

// TicketListings returns the listing projection repository.
func (p *Postgres) TicketListings() TicketListingRepository { return &pgListings{p.pool} }

// UserGroups returns the user-groups projection repository.
func (p *Postgres) UserGroups() UserGroupsRepository { return &pgUserGroups{p.pool} }

type identified interface {
	domain.User | domain.Group | domain.Ticket | domain.Upload
}

// pgViews stores one view kind as JSONB rows. The table name is fixed at
// construction, never caller-supplied.
type pgViews[T identified] struct {
	pool  *pgxpool.Pool
	table string
}

func entityID[T identified](view *T) id.ID {
	switch v := any(view).(type) {
	case *domain.User:
		return v.ID
	case *domain.Group:
		return v.ID
	case *domain.Ticket:
		return v.ID
	case *domain.Upload:
		return v.ID
	}
	return ""
}

func (r *pgViews[T]) Insert(ctx context.Context, view *T) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	query := `INSERT INTO ` + r.table + ` (id, payload) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query, entityID(view).String(), payload)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *pgViews[T]) Update(ctx context.Context, view *T) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	query := `UPDATE ` + r.table + ` SET payload=$2, updated_at=NOW() WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, entityID(view).String(), payload)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgViews[T]) Get(ctx context.Context, viewID id.ID) (*T, error) {
	query := `SELECT payload FROM ` + r.table + ` WHERE id=$1`
	var payload []byte
	if err := r.pool.QueryRow(ctx, query, viewID.String()).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	view := new(T)
	if err := json.Unmarshal(payload, view); err != nil {
		return nil, err
	}
	return view, nil
}

type pgIdentities struct {
	pool *pgxpool.Pool
}

func (r *pgIdentities) Claim(ctx context.Context, identity string, userID id.ID) error {
	const query = `INSERT INTO identities (identity, user_id) VALUES ($1, $2) ON CONFLICT (identity) DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query, identity, userID.String())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *pgIdentities) Lookup(ctx context.Context, identity string) (id.ID, error) {
	const query = `SELECT user_id FROM identities WHERE identity=$1`
	var userID string
	if err := r.pool.QueryRow(ctx, query, identity).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return id.ID(userID), nil
}

type pgListings struct {
	pool *pgxpool.Pool
}

func (r *pgListings) Add(ctx context.Context, kind ListingKind, userID, ticketID id.ID) error {
	const query = `
        INSERT INTO ticket_listings (kind, user_id, ticket_id)
        VALUES ($1, $2, $3) ON CONFLICT (kind, user_id, ticket_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, string(kind), userID.String(), ticketID.String())
	return err
}

func (r *pgListings) Remove(ctx context.Context, kind ListingKind, userID, ticketID id.ID) error {
	const query = `DELETE FROM ticket_listings WHERE kind=$1 AND user_id=$2 AND ticket_id=$3`
	_, err := r.pool.Exec(ctx, query, string(kind), userID.String(), ticketID.String())
	return err
}

func (r *pgListings) List(ctx context.Context, kind ListingKind, userID id.ID) ([]id.ID, error) {
	const query = `SELECT ticket_id FROM ticket_listings WHERE kind=$1 AND user_id=$2 ORDER BY pos`
	rows, err := r.pool.Query(ctx, query, string(kind), userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

type pgUserGroups struct {
	pool *pgxpool.Pool
}

func (r *pgUserGroups) Add(ctx context.Context, userID, groupID id.ID) error {
	const query = `
        INSERT INTO user_groups (user_id, group_id)
        VALUES ($1, $2) ON CONFLICT (user_id, group_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, userID.String(), groupID.String())
	return err
}

func (r *pgUserGroups) Remove(ctx context.Context, userID, groupID id.ID) error {
	const query = `DELETE FROM user_groups WHERE user_id=$1 AND group_id=$2`
	_, err := r.pool.Exec(ctx, query, userID.String(), groupID.String())
	return err
}

func (r *pgUserGroups) List(ctx context.Context, userID id.ID) ([]id.ID, error) {
	const query = `SELECT group_id FROM user_groups WHERE user_id=$1 ORDER BY pos`
	rows, err := r.pool.Query(ctx, query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows pgx.Rows) ([]id.ID, error) {
	var result []id.ID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		result = append(result, id.ID(raw))
	}
	return result, rows.Err()
}
