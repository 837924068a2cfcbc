package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func TestToDomain(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	u, err := toDomain(mongoUser{
		ID:           "u-1",
		Name:         "Alice",
		Email:        "alice@x.com",
		PasswordHash: "hash",
		Role:         "MANAGER",
		Permissions:  []string{"users:read"},
		CreatedAt:    created.Unix(),
		UpdatedAt:    created.Unix(),
	})
	if err != nil {
		t.Fatalf("toDomain: %v", err)
	}
	if u.Role != domain.RoleManager || !u.CreatedAt.Equal(created) || u.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestToDomain_CorruptRole(t *testing.T) {
	_, err := toDomain(mongoUser{ID: "u-2", Role: "SUPERUSER"})
	if !errors.Is(err, domain.ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}
	var cre *domain.CorruptRecordError
	if !errors.As(err, &cre) || cre.ID != "u-2" || cre.Value != "SUPERUSER" {
		t.Fatalf("unexpected error detail: %v", err)
	}
}

func TestUnixToTime_Zero(t *testing.T) {
	if !unixToTime(0).IsZero() {
		t.Fatalf("expected zero time")
	}
}

// Runs against a real server when MONGO_TEST_URI is set.
func TestUserRepository_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	client, db, err := Connect(ctx, Config{URI: uri, Database: "auth_test_" + uuid.NewString()[:8]})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() {
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	}()

	repo := NewUserRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	user := &domain.User{
		ID: uuid.NewString(), Name: "Alice", Email: "alice@x.com",
		PasswordHash: "hash", Role: domain.RoleUser, CreatedAt: now, UpdatedAt: now,
	}
	if _, err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := *user
	dup.ID = uuid.NewString()
	if _, err := repo.Create(ctx, &dup); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	got, err := repo.FindByEmail(ctx, "alice@x.com")
	if err != nil || got.ID != user.ID || !got.CreatedAt.Equal(now) {
		t.Fatalf("find by email: %+v, %v", got, err)
	}
	if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := Ping(db)(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
