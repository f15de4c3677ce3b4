// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/kagemusha-ai/kagemusha/app/dto"
	businessflow "github.com/kagemusha-ai/kagemusha/business_flow"
	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/repository"
	"github.com/kagemusha-ai/kagemusha/utils"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditScheduler periodically checks for due schedules and triggers the
// corresponding single-prompt audits. Due schedules are executed
// sequentially; the orchestrator's own pacing bounds the scoring call rate
// no matter how many schedules come due in one tick.
type AuditScheduler struct {
	scheduleFlow businessflow.ScheduleFlow
	promptFlow   businessflow.PromptFlow
	auditFlow    businessflow.AuditFlow
	promptRepo   repository.PromptRepository
	logger       *log.Logger
	interval     time.Duration
}

// NewAuditScheduler creates a new audit scheduler
func NewAuditScheduler(
	scheduleFlow businessflow.ScheduleFlow,
	promptFlow businessflow.PromptFlow,
	auditFlow businessflow.AuditFlow,
	promptRepo repository.PromptRepository,
	interval time.Duration,
) *AuditScheduler {
	if interval <= 0 {
		interval = time.Minute
	}

	s := &AuditScheduler{
		scheduleFlow: scheduleFlow,
		promptFlow:   promptFlow,
		auditFlow:    auditFlow,
		promptRepo:   promptRepo,
		interval:     interval,
	}

	if err := s.initSchedulerLogger(); err != nil {
		s.logger = log.Default()
		s.logger.Printf("scheduler: failed to initialize file logger: %v", err)
	}

	return s
}

// initSchedulerLogger configures a logger that writes to both stdout and a
// size-rotated file under data/ (or /data for containerized environments)
func (s *AuditScheduler) initSchedulerLogger() error {
	logDir := "data"
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		logDir = "/data"
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return err
		}
	}

	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "scheduler.log"),
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}
	mw := io.MultiWriter(os.Stdout, rotated)
	s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
	return nil
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *AuditScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *AuditScheduler) runOnce(ctx context.Context) {
	now := utils.UTCNow()

	due, err := s.scheduleFlow.ListDue(ctx, now)
	if err != nil {
		s.logger.Printf("scheduler: list due schedules failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Printf("scheduler: %d schedules due", len(due))

	for _, schedule := range due {
		if err := ctx.Err(); err != nil {
			return
		}
		if err := s.fireSchedule(ctx, schedule); err != nil {
			s.logger.Printf("scheduler: schedule id=%d (%s) failed: %v", schedule.ID, schedule.Name, err)
			continue
		}
		s.logger.Printf("scheduler: schedule id=%d (%s) fired", schedule.ID, schedule.Name)
	}
}

// fireSchedule resolves the schedule's target prompt and runs a single
// audit for it. The schedule advances even when the audit fails: a broken
// scoring call should not make the schedule re-fire every tick.
func (s *AuditScheduler) fireSchedule(ctx context.Context, schedule *models.Schedule) error {
	prompt, err := s.resolvePrompt(ctx, schedule)
	if err != nil {
		return err
	}

	ranAt := utils.UTCNow()
	if _, err := s.auditFlow.RunSingle(ctx, schedule.ClientID, prompt.ID); err != nil {
		s.logger.Printf("scheduler: audit for schedule id=%d prompt id=%d failed: %v", schedule.ID, prompt.ID, err)
	}

	return s.scheduleFlow.MarkRun(ctx, schedule, ranAt)
}

// resolvePrompt returns the prompt a schedule targets. A schedule bound to a
// prompt id uses that prompt; a name-only schedule reuses the client's
// prompt with the exact same text, registering it first when absent.
func (s *AuditScheduler) resolvePrompt(ctx context.Context, schedule *models.Schedule) (*models.Prompt, error) {
	if schedule.PromptID != nil {
		prompt, err := s.promptRepo.ByID(ctx, *schedule.PromptID)
		if err != nil {
			return nil, err
		}
		if prompt != nil && prompt.ClientID == schedule.ClientID {
			return prompt, nil
		}
		return nil, businessflow.ErrPromptNotFound
	}

	prompt, err := s.promptRepo.ByClientAndText(ctx, schedule.ClientID, schedule.Name)
	if err != nil {
		return nil, err
	}
	if prompt != nil {
		return prompt, nil
	}

	created, err := s.promptFlow.AddPrompt(ctx, &dto.AddPromptRequest{
		ClientID: schedule.ClientID,
		Text:     schedule.Name,
	})
	if err != nil {
		return nil, err
	}
	return s.promptRepo.ByID(ctx, created.ID)
}
