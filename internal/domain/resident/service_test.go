package resident

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/rs/zerolog"
)

type mockRepo struct {
	homes     map[int64]*GroupHome
	residents map[int64]*Resident
	err       error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		homes: map[int64]*GroupHome{
			10: {ID: 10, Name: "Maple House", Active: true},
			11: {ID: 11, Name: "Birch House", Active: false},
		},
		residents: map[int64]*Resident{
			1: {ID: 1, GroupHomeID: 10, FirstName: "Jane", LastName: "Doe", Active: true},
			2: {ID: 2, GroupHomeID: 10, FirstName: "Sam", LastName: "Roe", Active: false},
			3: {ID: 3, GroupHomeID: 11, FirstName: "Lee", LastName: "Poe", Active: true},
		},
	}
}

func (m *mockRepo) ListGroupHomes(_ context.Context, includeInactive bool) ([]*GroupHome, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*GroupHome
	for _, g := range m.homes {
		if g.Active || includeInactive {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockRepo) GetGroupHome(_ context.Context, id int64) (*GroupHome, error) {
	if m.err != nil {
		return nil, m.err
	}
	g, ok := m.homes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}

func (m *mockRepo) ListResidents(_ context.Context, f ListFilter, limit, offset int) ([]*Resident, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []*Resident
	for _, r := range m.residents {
		if r.GroupHomeID == f.GroupHomeID && (r.Active || f.IncludeInactive) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *mockRepo) GetResident(_ context.Context, id int64) (*Resident, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.residents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func TestService_HomeExists(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	ctx := context.Background()
	for id, want := range map[int64]bool{10: true, 11: false, 99: false} {
		got, err := svc.HomeExists(ctx, id)
		if err != nil {
			t.Fatalf("home %d: %v", id, err)
		}
		if got != want {
			t.Errorf("HomeExists(%d) = %v, want %v", id, got, want)
		}
	}
}

func TestService_HomeExists_PropagatesErrors(t *testing.T) {
	repo := newMockRepo()
	repo.err = errors.New("boom")
	svc := NewService(repo, zerolog.Nop())
	if _, err := svc.HomeExists(context.Background(), 10); err == nil {
		t.Fatal("expected error")
	}
}

func TestService_ResidentInHome(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	tests := []struct {
		name     string
		resident int64
		home     int64
		want     bool
	}{
		{"active in home", 1, 10, true},
		{"inactive", 2, 10, false},
		{"other home", 3, 10, false},
		{"unknown", 99, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ResidentInHome(context.Background(), tt.resident, tt.home)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestService_GetResident_ScopedToHome(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	if _, err := svc.GetResident(context.Background(), 10, 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for resident of another home, got %v", err)
	}
	r, err := svc.GetResident(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.DisplayName() != "Jane Doe" {
		t.Errorf("unexpected name %q", r.DisplayName())
	}
}

func TestResident_DisplayNameFallback(t *testing.T) {
	r := &Resident{ID: 7, FirstName: " ", LastName: ""}
	if got := r.DisplayName(); got != "Resident #7" {
		t.Errorf("got %q", got)
	}
}
