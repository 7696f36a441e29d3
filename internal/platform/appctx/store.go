package appctx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const keyPrefix = "carehub:"

func userKey(id int64) string { return fmt.Sprintf("%suser:%d", keyPrefix, id) }

func homeKey(id int64) string { return fmt.Sprintf("%ssession:%d:home", keyPrefix, id) }

// Store persists the user profile without expiry and the home selection for
// sessionTTL.
type Store struct {
	kv         KV
	sessionTTL time.Duration
}

func NewStore(kv KV, sessionTTL time.Duration) *Store {
	return &Store{kv: kv, sessionTTL: sessionTTL}
}

func (s *Store) SaveUser(ctx context.Context, a AppContext) error {
	raw, err := json.Marshal(a.Persisted())
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.kv.Set(ctx, userKey(a.User.ID), string(raw), 0); err != nil {
		return fmt.Errorf("save user %d: %w", a.User.ID, err)
	}
	return nil
}

// LoadUser returns ErrMiss when the profile was never saved.
func (s *Store) LoadUser(ctx context.Context, id int64) (User, error) {
	raw, err := s.kv.Get(ctx, userKey(id))
	if err != nil {
		return User{}, err
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, fmt.Errorf("decode user %d: %w", id, err)
	}
	return u, nil
}

func (s *Store) SelectGroupHome(ctx context.Context, userID, homeID int64) error {
	if err := s.kv.Set(ctx, homeKey(userID), strconv.FormatInt(homeID, 10), s.sessionTTL); err != nil {
		return fmt.Errorf("select group home: %w", err)
	}
	return nil
}

// SelectedGroupHome returns 0 when nothing is selected or the session expired.
func (s *Store) SelectedGroupHome(ctx context.Context, userID int64) (int64, error) {
	raw, err := s.kv.Get(ctx, homeKey(userID))
	if errors.Is(err, ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode group home selection: %w", err)
	}
	return id, nil
}

func (s *Store) ClearGroupHome(ctx context.Context, userID int64) error {
	return s.kv.Del(ctx, homeKey(userID))
}
