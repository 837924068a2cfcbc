package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	if _, err := repo.Create(ctx, &domain.User{ID: "1", Email: "a@x.com", Role: domain.RoleUser, Permissions: []string{"p"}}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byEmail, err := repo.FindByEmail(ctx, "a@x.com")
	if err != nil || byEmail.ID != "1" {
		t.Fatalf("FindByEmail: user=%+v err=%v", byEmail, err)
	}

	// Callers must not be able to mutate stored records.
	byEmail.Permissions[0] = "mutated"
	byID, err := repo.FindByID(ctx, "1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(byID.Permissions) != 1 || byID.Permissions[0] != "p" {
		t.Fatalf("stored record was mutated: %v", byID.Permissions)
	}

	if _, err := repo.FindByID(ctx, "2"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound by id, got %v", err)
	}
	if _, err := repo.FindByEmail(ctx, "b@x.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound by email, got %v", err)
	}
}

func TestUserRepository_UniqueEmailUnderConcurrency(t *testing.T) {
	repo := NewUserRepository()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(context.Background(), &domain.User{ID: string(rune('a' + i)), Email: "same@x.com"})
			if err == nil {
				mu.Lock()
				won++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrUserExists) {
				t.Errorf("expected ErrUserExists, got %v", err)
			}
		}(i)
	}
	wg.Wait()
	if won != 1 {
		t.Fatalf("expected exactly one winner, got %d", won)
	}
}
