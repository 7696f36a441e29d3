package incident

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/auth"
)

const maxWitnesses = 20

// Actor is the staff member performing an operation.
type Actor struct {
	StaffID int64
	Roles   []string
}

func (a Actor) Has(role string) bool { return auth.HasRole(a.Roles, role) }

type Service struct {
	repo      Repository
	residents ResidentLookup
	policy    TransitionPolicy
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, residents ResidentLookup, policy TransitionPolicy, logger zerolog.Logger) *Service {
	if policy == nil {
		policy = PermissivePolicy{}
	}
	return &Service{repo: repo, residents: residents, policy: policy, logger: logger, now: time.Now}
}

func (s *Service) Policy() TransitionPolicy { return s.policy }

// CreateInput is section A of a new report.
type CreateInput struct {
	ResidentID          int64
	IncidentType        IncidentType
	SeverityLevel       SeverityLevel
	OccurredAt          time.Time
	Location            string
	Description         string
	PreIncidentContext  string
	PostIncidentContext string
	FallDetails         *FallDetails
	MedicationDetails   *MedicationDetails
	Witnesses           []Witness
	Notifications       Notifications
}

// Create stores a new Draft report authored by actor in groupHomeID.
func (s *Service) Create(ctx context.Context, groupHomeID int64, actor Actor, in CreateInput) (*IncidentReport, error) {
	r := &IncidentReport{
		GroupHomeID:    groupHomeID,
		ResidentID:     in.ResidentID,
		StaffID:        actor.StaffID,
		WorkflowStatus: StatusDraft,
		Witnesses:      []Witness{},
	}
	v := NewStaffView(r)
	v.SetDetails(Details{
		IncidentType:        &in.IncidentType,
		SeverityLevel:       &in.SeverityLevel,
		OccurredAt:          &in.OccurredAt,
		Location:            &in.Location,
		Description:         &in.Description,
		PreIncidentContext:  &in.PreIncidentContext,
		PostIncidentContext: &in.PostIncidentContext,
	})
	v.SetFallDetails(in.FallDetails)
	v.SetMedicationDetails(in.MedicationDetails)
	v.ReplaceWitnesses(in.Witnesses)
	v.SetNotifications(in.Notifications)

	if in.ResidentID <= 0 {
		return nil, fmt.Errorf("%w: resident_id is required", ErrInvalid)
	}
	if err := s.validateStaffSection(r); err != nil {
		return nil, err
	}
	ok, err := s.residents.ResidentInHome(ctx, in.ResidentID, groupHomeID)
	if err != nil {
		return nil, fmt.Errorf("check resident: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: resident %d is not in this group home", ErrInvalid, in.ResidentID)
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create incident report: %w", err)
	}
	s.logger.Info().
		Int64("incident_id", r.ID).
		Int64("staff_id", actor.StaffID).
		Str("incident_type", string(r.IncidentType)).
		Str("severity", string(r.SeverityLevel)).
		Msg("incident report created")
	return r, nil
}

// Get returns the report only when it belongs to groupHomeID.
func (s *Service) Get(ctx context.Context, groupHomeID, id int64) (*IncidentReport, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.GroupHomeID != groupHomeID {
		return nil, ErrNotFound
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*IncidentReport, int, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown workflow status %q", ErrInvalid, *f.Status)
	}
	return s.repo.List(ctx, f, limit, offset)
}

// StaffPatch is a partial update of section A. Nil fields are left alone.
type StaffPatch struct {
	Details
	FallDetails       *FallDetails
	MedicationDetails *MedicationDetails
	Witnesses         *[]Witness
	Notifications     *Notifications
	Signature         *string
	Version           int
}

// UpdateStaffSection applies patch to section A. The stored report is only
// replaced once the repository acknowledges the write.
func (s *Service) UpdateStaffSection(ctx context.Context, groupHomeID int64, actor Actor, id int64, patch StaffPatch) (*IncidentReport, error) {
	current, err := s.Get(ctx, groupHomeID, id)
	if err != nil {
		return nil, err
	}
	if current.WorkflowStatus.Terminal() {
		return nil, ErrClosed
	}
	if patch.Version != 0 && patch.Version != current.Version {
		return nil, ErrConflict
	}

	next := current.Clone()
	v := NewStaffView(next)
	v.SetDetails(patch.Details)
	if patch.FallDetails != nil {
		v.SetFallDetails(patch.FallDetails)
	}
	if patch.MedicationDetails != nil {
		v.SetMedicationDetails(patch.MedicationDetails)
	}
	if patch.Witnesses != nil {
		v.ReplaceWitnesses(*patch.Witnesses)
	}
	if patch.Notifications != nil {
		v.SetNotifications(*patch.Notifications)
	}
	if patch.Signature != nil {
		if strings.TrimSpace(*patch.Signature) == "" {
			return nil, fmt.Errorf("%w: signature must not be blank", ErrInvalid)
		}
		if !next.IsAuthor(actor.StaffID) {
			return nil, fmt.Errorf("%w: only the author may sign", ErrForbiddenSection)
		}
		v.Sign(*patch.Signature, s.now())
	}

	if err := s.validateStaffSection(next); err != nil {
		return nil, err
	}
	if err := s.repo.PatchStaffSection(ctx, next); err != nil {
		return nil, fmt.Errorf("update staff section: %w", err)
	}
	return next, nil
}

// ReviewPatch is a partial update of the supervisor section.
type ReviewPatch struct {
	WorkflowStatus       *WorkflowStatus
	SupervisorReviewedAt *time.Time
	SupervisorNotes      *string
	CorrectiveActions    *string
	FollowUpRequired     *bool
	Version              int
}

func applyReview(v SupervisorEditableView, p ReviewPatch) {
	if p.WorkflowStatus != nil {
		v.SetWorkflowStatus(*p.WorkflowStatus)
	}
	if p.SupervisorReviewedAt != nil {
		v.SetReviewedAt(p.SupervisorReviewedAt)
	}
	if p.SupervisorNotes != nil {
		v.SetNotes(*p.SupervisorNotes)
	}
	if p.CorrectiveActions != nil {
		v.SetCorrectiveActions(*p.CorrectiveActions)
	}
	if p.FollowUpRequired != nil {
		v.SetFollowUpRequired(*p.FollowUpRequired)
	}
}

// CheckReview evaluates the review gate for patch without saving anything.
func (s *Service) CheckReview(ctx context.Context, groupHomeID int64, actor Actor, id int64, patch ReviewPatch) (GateResult, error) {
	current, err := s.Get(ctx, groupHomeID, id)
	if err != nil {
		return GateResult{}, err
	}
	if current.IsAuthor(actor.StaffID) {
		return GateResult{}, ErrForbiddenSection
	}
	next := current.Clone()
	v := NewSupervisorView(next)
	applyReview(v, patch)
	return v.Gate(), nil
}

// SubmitReview saves the supervisor section in a single partial update. The
// gate and the transition policy are checked first; nothing reaches the
// repository if either fails.
func (s *Service) SubmitReview(ctx context.Context, groupHomeID int64, actor Actor, id int64, patch ReviewPatch) (*IncidentReport, error) {
	current, err := s.Get(ctx, groupHomeID, id)
	if err != nil {
		return nil, err
	}
	if current.IsAuthor(actor.StaffID) {
		return nil, fmt.Errorf("%w: authors cannot review their own report", ErrForbiddenSection)
	}
	if current.WorkflowStatus.Terminal() {
		return nil, ErrClosed
	}
	if patch.Version != 0 && patch.Version != current.Version {
		return nil, ErrConflict
	}

	next := current.Clone()
	v := NewSupervisorView(next)
	applyReview(v, patch)

	if !next.WorkflowStatus.Valid() && next.WorkflowStatus != "" {
		return nil, fmt.Errorf("%w: unknown workflow status %q", ErrInvalid, next.WorkflowStatus)
	}
	if g := v.Gate(); !g.Valid {
		return nil, &GateError{Missing: g.Missing}
	}
	if !s.policy.Allowed(current.WorkflowStatus, next.WorkflowStatus) {
		return nil, fmt.Errorf("%w: %s to %s under %s policy",
			ErrTransitionNotAllowed, current.WorkflowStatus, next.WorkflowStatus, s.policy.Name())
	}

	reviewer := actor.StaffID
	next.ReviewedBy = &reviewer
	if err := s.repo.PatchReview(ctx, next); err != nil {
		return nil, fmt.Errorf("submit review: %w", err)
	}

	s.logger.Info().
		Int64("incident_id", next.ID).
		Int64("reviewer_id", reviewer).
		Str("from", string(current.WorkflowStatus)).
		Str("to", string(next.WorkflowStatus)).
		Msg("incident review saved")
	return next, nil
}

// Form returns the lock pattern for actor viewing the report as the given
// role. An empty role picks supervisor for non-authors who hold it.
func (s *Service) Form(ctx context.Context, groupHomeID int64, actor Actor, id int64, as string) (Form, error) {
	r, err := s.Get(ctx, groupHomeID, id)
	if err != nil {
		return Form{}, err
	}
	if as == "" {
		as = auth.RoleStaff
		if actor.Has(auth.RoleSupervisor) && !r.IsAuthor(actor.StaffID) {
			as = auth.RoleSupervisor
		}
	}
	if !actor.Has(as) {
		return Form{}, fmt.Errorf("%w: missing role %q", ErrForbiddenSection, as)
	}
	if as == auth.RoleSupervisor && r.IsAuthor(actor.StaffID) {
		return Form{}, fmt.Errorf("%w: authors cannot review their own report", ErrForbiddenSection)
	}
	return FormFor(r, as)
}

func (s *Service) validateStaffSection(r *IncidentReport) error {
	if !r.IncidentType.Valid() {
		return fmt.Errorf("%w: invalid incident_type %q", ErrInvalid, r.IncidentType)
	}
	if !r.SeverityLevel.Valid() {
		return fmt.Errorf("%w: invalid severity_level %q", ErrInvalid, r.SeverityLevel)
	}
	if r.OccurredAt.IsZero() {
		return fmt.Errorf("%w: occurred_at is required", ErrInvalid)
	}
	if r.OccurredAt.After(s.now().Add(5 * time.Minute)) {
		return fmt.Errorf("%w: occurred_at cannot be in the future", ErrInvalid)
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalid)
	}
	if len(r.Witnesses) > maxWitnesses {
		return fmt.Errorf("%w: at most %d witnesses", ErrInvalid, maxWitnesses)
	}
	for i, w := range r.Witnesses {
		if strings.TrimSpace(w.Name) == "" {
			return fmt.Errorf("%w: witness %d has no name", ErrInvalid, i+1)
		}
	}
	return nil
}
