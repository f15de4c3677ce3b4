package businessflow

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kagemusha-ai/kagemusha/app/dto"
	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/repository"
	"github.com/kagemusha-ai/kagemusha/utils"
)

// ComputeNextRun returns now plus the interval. The anchor is the moment of
// computation, not the previous target: a schedule that ran late drifts
// forward rather than compressing the next interval.
func ComputeNextRun(value int, unit models.IntervalUnit, now time.Time) time.Time {
	return now.Add(time.Duration(value) * unit.Duration())
}

// IsOverdue reports whether the schedule is due at the given instant. A nil
// next_run_at never fires.
func IsOverdue(schedule *models.Schedule, now time.Time) bool {
	if schedule.Active == nil || !*schedule.Active || schedule.NextRunAt == nil {
		return false
	}
	return schedule.NextRunAt.Before(now)
}

// ScheduleFlow manages recurring-audit configurations. The flow only does
// interval math and state transitions; firing due schedules is the
// scheduler's job.
type ScheduleFlow interface {
	Create(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleDTO, error)
	Toggle(ctx context.Context, clientID uint, req *dto.ToggleScheduleRequest) (*dto.ScheduleDTO, error)
	List(ctx context.Context, clientID uint) ([]dto.ScheduleDTO, error)
	Delete(ctx context.Context, clientID, scheduleID uint) error
	ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error)
	MarkRun(ctx context.Context, schedule *models.Schedule, ranAt time.Time) error
}

// ScheduleFlowImpl implements ScheduleFlow
type ScheduleFlowImpl struct {
	scheduleRepo repository.ScheduleRepository
	promptRepo   repository.PromptRepository
	logger       *log.Logger
}

// NewScheduleFlow creates a new schedule flow
func NewScheduleFlow(scheduleRepo repository.ScheduleRepository, promptRepo repository.PromptRepository, logger *log.Logger) ScheduleFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &ScheduleFlowImpl{
		scheduleRepo: scheduleRepo,
		promptRepo:   promptRepo,
		logger:       logger,
	}
}

// Create registers a schedule and seeds next_run_at from the creation time
func (f *ScheduleFlowImpl) Create(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleDTO, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, NewBusinessError("SCHEDULE_NAME_REQUIRED", "Schedule name is required", ErrScheduleNameRequired)
	}
	unit := models.IntervalUnit(req.IntervalUnit)
	if req.IntervalValue < 1 || !unit.Valid() {
		return nil, NewBusinessError("SCHEDULE_INTERVAL_INVALID", "Schedule interval is invalid", ErrScheduleIntervalInvalid)
	}

	if req.PromptID != nil {
		prompt, err := f.promptRepo.ByID(ctx, *req.PromptID)
		if err != nil {
			return nil, NewBusinessError("PROMPT_LOOKUP_FAILED", "Failed to look up prompt", err)
		}
		if prompt == nil || prompt.ClientID != req.ClientID {
			return nil, NewBusinessError("PROMPT_NOT_FOUND", "Prompt not found", ErrPromptNotFound)
		}
	}

	now := utils.UTCNow()
	nextRun := ComputeNextRun(req.IntervalValue, unit, now)

	schedule := &models.Schedule{
		UUID:          uuid.New(),
		ClientID:      req.ClientID,
		PromptID:      req.PromptID,
		Name:          strings.TrimSpace(req.Name),
		IntervalValue: req.IntervalValue,
		IntervalUnit:  unit,
		Active:        utils.ToPtr(true),
		NextRunAt:     &nextRun,
		CreatedAt:     now,
	}

	if err := f.scheduleRepo.Save(ctx, schedule); err != nil {
		return nil, NewBusinessError("SCHEDULE_CREATE_FAILED", "Failed to create schedule", err)
	}

	out := ToScheduleDTO(*schedule)
	return &out, nil
}

func (f *ScheduleFlowImpl) ownedSchedule(ctx context.Context, clientID, scheduleID uint) (*models.Schedule, error) {
	schedule, err := f.scheduleRepo.ByID(ctx, scheduleID)
	if err != nil {
		return nil, NewBusinessError("SCHEDULE_LOOKUP_FAILED", "Failed to look up schedule", err)
	}
	if schedule == nil || schedule.ClientID != clientID {
		return nil, NewBusinessError("SCHEDULE_NOT_FOUND", "Schedule not found", ErrScheduleNotFound)
	}
	return schedule, nil
}

// Toggle enables or disables a schedule. Disabling clears next_run_at so the
// schedule cannot fire; re-enabling recomputes it from the current time, not
// from the stale pre-disable target.
func (f *ScheduleFlowImpl) Toggle(ctx context.Context, clientID uint, req *dto.ToggleScheduleRequest) (*dto.ScheduleDTO, error) {
	schedule, err := f.ownedSchedule(ctx, clientID, req.ScheduleID)
	if err != nil {
		return nil, err
	}

	schedule.Active = utils.ToPtr(req.Active)
	if req.Active {
		nextRun := ComputeNextRun(schedule.IntervalValue, schedule.IntervalUnit, utils.UTCNow())
		schedule.NextRunAt = &nextRun
	} else {
		schedule.NextRunAt = nil
	}

	if err := f.scheduleRepo.Update(ctx, *schedule); err != nil {
		return nil, NewBusinessError("SCHEDULE_UPDATE_FAILED", "Failed to update schedule", err)
	}

	out := ToScheduleDTO(*schedule)
	return &out, nil
}

// List returns the client's schedules
func (f *ScheduleFlowImpl) List(ctx context.Context, clientID uint) ([]dto.ScheduleDTO, error) {
	schedules, err := f.scheduleRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, NewBusinessError("SCHEDULE_LIST_FAILED", "Failed to list schedules", err)
	}

	out := make([]dto.ScheduleDTO, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, ToScheduleDTO(*s))
	}
	return out, nil
}

// Delete removes a schedule entirely
func (f *ScheduleFlowImpl) Delete(ctx context.Context, clientID, scheduleID uint) error {
	if _, err := f.ownedSchedule(ctx, clientID, scheduleID); err != nil {
		return err
	}
	if err := f.scheduleRepo.Delete(ctx, scheduleID); err != nil {
		return NewBusinessError("SCHEDULE_DELETE_FAILED", "Failed to delete schedule", err)
	}
	return nil
}

// ListDue returns active schedules whose next_run_at has passed
func (f *ScheduleFlowImpl) ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	schedules, err := f.scheduleRepo.ListDue(ctx, now)
	if err != nil {
		return nil, NewBusinessError("SCHEDULE_DUE_FAILED", "Failed to list due schedules", err)
	}
	return schedules, nil
}

// MarkRun records a completed firing and advances next_run_at from the
// actual run time
func (f *ScheduleFlowImpl) MarkRun(ctx context.Context, schedule *models.Schedule, ranAt time.Time) error {
	nextRun := ComputeNextRun(schedule.IntervalValue, schedule.IntervalUnit, ranAt)

	schedule.LastRunAt = &ranAt
	schedule.NextRunAt = &nextRun
	schedule.RunCount++

	if err := f.scheduleRepo.Update(ctx, *schedule); err != nil {
		return NewBusinessError("SCHEDULE_UPDATE_FAILED", "Failed to record schedule run", err)
	}
	return nil
}
