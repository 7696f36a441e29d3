package appctx

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAppContext_PersistedExcludesGroupHome(t *testing.T) {
	a := AppContext{
		User:        User{ID: 7, FirstName: "Rosa", LastName: "Diaz", Roles: []string{"staff"}},
		GroupHomeID: 3,
	}
	u := a.Persisted()
	u.Roles[0] = "admin"
	if a.User.Roles[0] != "staff" {
		t.Error("Persisted must copy roles")
	}
	if u.ID != 7 || u.FirstName != "Rosa" {
		t.Errorf("unexpected persisted user %+v", u)
	}
}

func TestStore_SaveAndLoadUser(t *testing.T) {
	kv := NewMemoryKV()
	s := NewStore(kv, time.Hour)
	ctx := context.Background()

	a := AppContext{User: User{ID: 4, FirstName: "Sam", LastName: "Lee", Roles: []string{"supervisor"}}, GroupHomeID: 9}
	if err := s.SaveUser(ctx, a); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	raw, err := kv.Get(ctx, "carehub:user:4")
	if err != nil {
		t.Fatalf("expected stored profile: %v", err)
	}
	if strings.Contains(raw, "group_home") {
		t.Errorf("persisted profile must not carry the home selection: %s", raw)
	}

	u, err := s.LoadUser(ctx, 4)
	if err != nil {
		t.Fatalf("LoadUser: %v", err)
	}
	if u.LastName != "Lee" || len(u.Roles) != 1 {
		t.Errorf("unexpected user %+v", u)
	}

	if _, err := s.LoadUser(ctx, 99); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}
}

func TestStore_GroupHomeSelectionExpires(t *testing.T) {
	kv := NewMemoryKV()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	s := NewStore(kv, 30*time.Minute)
	ctx := context.Background()

	if id, err := s.SelectedGroupHome(ctx, 1); err != nil || id != 0 {
		t.Fatalf("expected no selection, got %d, %v", id, err)
	}

	if err := s.SelectGroupHome(ctx, 1, 12); err != nil {
		t.Fatalf("SelectGroupHome: %v", err)
	}
	if id, _ := s.SelectedGroupHome(ctx, 1); id != 12 {
		t.Errorf("expected 12, got %d", id)
	}

	now = now.Add(31 * time.Minute)
	if id, _ := s.SelectedGroupHome(ctx, 1); id != 0 {
		t.Errorf("expected selection to expire, got %d", id)
	}
}

func TestStore_UserHasNoExpiry(t *testing.T) {
	kv := NewMemoryKV()
	now := time.Now()
	kv.now = func() time.Time { return now }
	s := NewStore(kv, time.Minute)
	ctx := context.Background()

	_ = s.SaveUser(ctx, AppContext{User: User{ID: 2, FirstName: "Ana"}})
	now = now.Add(24 * 365 * time.Hour)
	if _, err := s.LoadUser(ctx, 2); err != nil {
		t.Errorf("expected profile to persist, got %v", err)
	}
}

func TestStore_ClearGroupHome(t *testing.T) {
	s := NewStore(NewMemoryKV(), time.Hour)
	ctx := context.Background()
	_ = s.SelectGroupHome(ctx, 5, 8)
	if err := s.ClearGroupHome(ctx, 5); err != nil {
		t.Fatalf("ClearGroupHome: %v", err)
	}
	if id, _ := s.SelectedGroupHome(ctx, 5); id != 0 {
		t.Errorf("expected cleared selection, got %d", id)
	}
}
