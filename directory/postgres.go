package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	authcore "github.com/MrEthical07/authcore"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Schema is the table this directory expects. It is exported so embedders
// can feed it to their migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	uuid          UUID PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	confirmed     BOOLEAN NOT NULL DEFAULT FALSE,
	active        BOOLEAN NOT NULL DEFAULT FALSE,
	admin         BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// userRow is the persistence shape of one account.
type userRow struct {
	UUID         string    `db:"uuid"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Confirmed    bool      `db:"confirmed"`
	Active       bool      `db:"active"`
	Admin        bool      `db:"admin"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toRecord() *authcore.UserRecord {
	return &authcore.UserRecord{
		UUID:         r.UUID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Confirmed:    r.Confirmed,
		Active:       r.Active,
		Admin:        r.Admin,
		Updated:      r.UpdatedAt,
	}
}

// Postgres is a UserDirectory backed by a users table.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open sqlx handle. The caller owns the handle's
// lifecycle and the schema.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects to dsn and returns a ready directory.
func Open(dsn string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("directory: connect: %w", err)
	}
	return NewPostgres(db), nil
}

func (p *Postgres) FindByUUID(ctx context.Context, uid string) (*authcore.UserRecord, error) {
	return p.findBy(ctx, "uuid", uid)
}

func (p *Postgres) FindByUsername(ctx context.Context, username string) (*authcore.UserRecord, error) {
	return p.findBy(ctx, "username", username)
}

func (p *Postgres) FindByEmail(ctx context.Context, email string) (*authcore.UserRecord, error) {
	return p.findBy(ctx, "email", email)
}

func (p *Postgres) findBy(ctx context.Context, column, value string) (*authcore.UserRecord, error) {
	var row userRow
	query := `SELECT uuid, username, email, password_hash, confirmed, active, admin, updated_at
		FROM users WHERE ` + column + ` = $1`
	if err := p.db.GetContext(ctx, &row, query, value); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("directory: find by %s: %w", column, err)
	}
	return row.toRecord(), nil
}

func (p *Postgres) Create(ctx context.Context, rec authcore.UserRecord) (*authcore.UserRecord, error) {
	query := `
		INSERT INTO users (uuid, username, email, password_hash, confirmed, active, admin, updated_at)
		VALUES (:uuid, :username, :email, :password_hash, :confirmed, :active, :admin, now())`

	_, err := p.db.NamedExecContext(ctx, query, userRow{
		UUID:         rec.UUID,
		Username:     rec.Username,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		Confirmed:    rec.Confirmed,
		Active:       rec.Active,
		Admin:        rec.Admin,
	})
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return nil, authcore.ErrAccountExists
		}
		return nil, fmt.Errorf("directory: create: %w", err)
	}

	return p.FindByUUID(ctx, rec.UUID)
}

// Update applies the non-nil fields of upd and refreshes updated_at even
// when a field is set to its current value.
func (p *Postgres) Update(ctx context.Context, uid string, upd authcore.UserUpdate) (*authcore.UserRecord, error) {
	sets := []string{"updated_at = now()"}
	args := []any{uid}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.PasswordHash != nil {
		add("password_hash", *upd.PasswordHash)
	}
	if upd.Confirmed != nil {
		add("confirmed", *upd.Confirmed)
	}
	if upd.Active != nil {
		add("active", *upd.Active)
	}
	if upd.Admin != nil {
		add("admin", *upd.Admin)
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE uuid = $1`
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, authcore.ErrAccountExists
		}
		return nil, fmt.Errorf("directory: update: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("directory: update: no such user %s", uid)
	}

	return p.FindByUUID(ctx, uid)
}
