package accounts

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

const accountColumns = `id, email, password_hash, role, deleted, version, created_at, updated_at`

// Postgres is a Store backed by PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open opens a pgx-backed *sql.DB for dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, in NewAccount) (Account, error) {
	query := `INSERT INTO accounts (id, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + accountColumns

	row := p.db.QueryRowContext(ctx, query, uuid.NewString(), NormalizeEmail(in.Email), in.PasswordHash, in.Role)
	acc, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Account{}, ErrDuplicateEmail
		}
		return Account{}, err
	}
	return acc, nil
}

func (p *Postgres) GetByID(ctx context.Context, id string) (Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Account{}, ErrNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(p.db.QueryRowContext(ctx, query, id))
}

func (p *Postgres) GetByEmail(ctx context.Context, email string) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(p.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
}

func (p *Postgres) UpdatePassword(ctx context.Context, id, passwordHash string) (Account, error) {
	return p.update(ctx, `password_hash = $2`, id, passwordHash)
}

func (p *Postgres) UpdateRole(ctx context.Context, id, role string) (Account, error) {
	return p.update(ctx, `role = $2`, id, role)
}

func (p *Postgres) SetDeleted(ctx context.Context, id string, deleted bool) (Account, error) {
	return p.update(ctx, `deleted = $2`, id, deleted)
}

func (p *Postgres) update(ctx context.Context, set, id string, value any) (Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Account{}, ErrNotFound
	}
	query := `UPDATE accounts SET ` + set + `, version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING ` + accountColumns
	return scanAccount(p.db.QueryRowContext(ctx, query, id, value))
}

func scanAccount(row *sql.Row) (Account, error) {
	var acc Account
	err := row.Scan(
		&acc.ID,
		&acc.Email,
		&acc.PasswordHash,
		&acc.Role,
		&acc.Deleted,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return Account{}, err
		}
		return Account{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return acc, nil
}
