package resident

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) ListGroupHomes(ctx context.Context, includeInactive bool) ([]*GroupHome, error) {
	return s.repo.ListGroupHomes(ctx, includeInactive)
}

func (s *Service) GetGroupHome(ctx context.Context, id int64) (*GroupHome, error) {
	return s.repo.GetGroupHome(ctx, id)
}

// HomeExists reports whether id names an active group home.
func (s *Service) HomeExists(ctx context.Context, id int64) (bool, error) {
	g, err := s.repo.GetGroupHome(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return g.Active, nil
}

func (s *Service) ListResidents(ctx context.Context, f ListFilter, limit, offset int) ([]*Resident, int, error) {
	return s.repo.ListResidents(ctx, f, limit, offset)
}

// GetResident returns a resident only if they live in groupHomeID.
func (s *Service) GetResident(ctx context.Context, groupHomeID, id int64) (*Resident, error) {
	r, err := s.repo.GetResident(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.GroupHomeID != groupHomeID {
		return nil, ErrNotFound
	}
	return r, nil
}

// ResidentInHome reports whether an active resident lives in groupHomeID.
func (s *Service) ResidentInHome(ctx context.Context, residentID, groupHomeID int64) (bool, error) {
	r, err := s.repo.GetResident(ctx, residentID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if r.GroupHomeID != groupHomeID || !r.Active {
		s.logger.Debug().Int64("resident_id", residentID).Int64("group_home_id", groupHomeID).
			Msg("resident not active in group home")
		return false, nil
	}
	return true, nil
}
