package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// DBTX is the subset of *pgxpool.Pool (or a pgx.Tx) the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const selectUser = `SELECT id, name, email, password_hash, role, permissions, created_at, updated_at FROM users`

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	perms := user.Permissions
	if perms == nil {
		perms = []string{}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, permissions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role), perms, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *user
	return &created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectUser+` WHERE email = $1`, email))
}

// FindByID reports ErrUserNotFound for ids that are not UUIDs, since no row
// can carry one.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.scanOne(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
}

func (r *UserRepository) scanOne(row pgx.Row) (*domain.User, error) {
	var (
		u         domain.User
		role      string
		perms     []string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &perms, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, &domain.CorruptRecordError{ID: u.ID, Field: "role", Value: role, Reason: err.Error()}
	}
	u.Role = parsed
	if len(perms) > 0 {
		u.Permissions = perms
	}
	u.CreatedAt = createdAt.UTC()
	u.UpdatedAt = updatedAt.UTC()
	return &u, nil
}
