// Package intent implements the scheduled-intent engine (spec.md §4.7):
// CRUD on intents, the pending query, the claim primitive, and the fire
// callback with cooldown/fire-mode/max-executions semantics. Modeled
// directly on the teacher's services/automation/automation_service.go +
// automation_triggers.go (Scheduler struct, dual ticker loops, trigger type
// dispatch), with robfig/cron/v3 computing cron next-fire occurrences.
package intent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/intent"
	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/intent/expression"
	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
	"github.com/ankitaa186/agentic-memories-sub004/internal/logging"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

const (
	// DefaultClaimTTL is the worker-exclusive claim window (spec.md §4.7).
	DefaultClaimTTL = 5 * time.Minute
	minCheckIntervalMinutes = 5
	defaultTimezone         = "America/Los_Angeles"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Service implements the scheduled-intent engine's operations over a
// RelationalAdapter. It does not evaluate trigger conditions (spec.md §1
// Non-goals); that is the proactive worker's job.
type Service struct {
	store storage.RelationalAdapter
	log   *logging.Logger
	now   func() time.Time
}

// New constructs a Service. now defaults to time.Now; tests may override it
// to make cooldown/next-check math deterministic.
func New(store storage.RelationalAdapter, log *logging.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// WithClock overrides the service's clock (test hook).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates and persists a new ScheduledIntent, computing its initial
// NextCheck.
func (s *Service) Create(ctx context.Context, si intent.ScheduledIntent) (intent.ScheduledIntent, error) {
	if err := s.validate(&si); err != nil {
		return intent.ScheduledIntent{}, err
	}

	if si.ID == "" {
		si.ID = "intent_" + uuid.New().String()
	}
	si.Enabled = true
	si.ExecutionCount = 0

	next, err := s.computeNextCheck(si, false, s.now())
	if err != nil {
		return intent.ScheduledIntent{}, apperrors.InvalidField("trigger_schedule", err.Error())
	}
	si.NextCheck = next

	created, err := s.store.CreateIntent(ctx, si)
	if err != nil {
		return intent.ScheduledIntent{}, apperrors.StorageFailure("relational", err)
	}
	return created, nil
}

func (s *Service) validate(si *intent.ScheduledIntent) error {
	if si.UserID == "" {
		return apperrors.MissingField("user_id")
	}
	if si.IntentName == "" {
		return apperrors.MissingField("intent_name")
	}
	if si.Schedule.Timezone == "" {
		si.Schedule.Timezone = defaultTimezone
	}
	if !expression.IsValidIANATimezone(si.Schedule.Timezone) {
		return apperrors.InvalidField("trigger_schedule.timezone", "not a valid IANA timezone name")
	}
	if _, err := time.LoadLocation(si.Schedule.Timezone); err != nil {
		return apperrors.InvalidField("trigger_schedule.timezone", "not a valid IANA timezone name")
	}
	if si.Schedule.CheckIntervalMinutes < minCheckIntervalMinutes {
		si.Schedule.CheckIntervalMinutes = minCheckIntervalMinutes
	}

	switch si.TriggerType {
	case intent.TriggerCron:
		if _, err := cronParser.Parse(si.Schedule.CronExpression); err != nil {
			return apperrors.InvalidField("trigger_schedule.cron_expression", err.Error())
		}
	case intent.TriggerInterval:
		if si.Schedule.IntervalMinutes <= 0 {
			return apperrors.InvalidField("trigger_schedule.interval_minutes", "must be > 0")
		}
	case intent.TriggerOnce:
		if si.Schedule.FireAt == nil {
			return apperrors.MissingField("trigger_schedule.fire_at")
		}
	case intent.TriggerPrice, intent.TriggerSilence, intent.TriggerPortfolio:
		if err := expression.Validate(string(si.TriggerType), si.Condition.Expression); err != nil {
			return apperrors.InvalidField("trigger_condition.expression", err.Error())
		}
		if si.Condition.CooldownHours <= 0 {
			return apperrors.InvalidField("trigger_condition.cooldown_hours", "must be in [1,168]")
		}
		si.Condition.CooldownHours = intent.ClampCooldownHours(si.Condition.CooldownHours)
		si.Condition.ConditionType = string(si.TriggerType)
		if si.Condition.FireMode == "" {
			si.Condition.FireMode = intent.FireRecurring
		}
	default:
		return apperrors.InvalidField("trigger_type", "unrecognized trigger type")
	}
	return nil
}

// Get, List, Delete pass through to the relational adapter.

func (s *Service) Get(ctx context.Context, id string) (intent.ScheduledIntent, bool, error) {
	return s.store.GetIntent(ctx, id)
}

func (s *Service) List(ctx context.Context, userID string) ([]intent.ScheduledIntent, error) {
	return s.store.ListIntents(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteIntent(ctx, id)
}

// Update applies a patch function to the current intent and re-validates.
func (s *Service) Update(ctx context.Context, id string, patch func(*intent.ScheduledIntent)) (intent.ScheduledIntent, error) {
	current, ok, err := s.store.GetIntent(ctx, id)
	if err != nil {
		return intent.ScheduledIntent{}, apperrors.StorageFailure("relational", err)
	}
	if !ok {
		return intent.ScheduledIntent{}, apperrors.NotFound("intent", id)
	}
	patch(&current)
	if err := s.validate(&current); err != nil {
		return intent.ScheduledIntent{}, err
	}
	return s.store.UpdateIntent(ctx, current)
}

// PendingEntry is one row of the pending query, annotated with whether a
// condition trigger is currently in cooldown (spec.md §4.7: "either exclude
// them or include with a cooldown_active flag" — this service includes them,
// per the Open Question decision recorded in DESIGN.md).
type PendingEntry struct {
	Intent         intent.ScheduledIntent
	CooldownActive bool
}

// Pending returns due intents (enabled, next_check <= now), annotating
// condition triggers still inside their cooldown window.
func (s *Service) Pending(ctx context.Context, userID string) ([]PendingEntry, error) {
	due, err := s.store.PendingIntents(ctx, userID, s.now())
	if err != nil {
		return nil, apperrors.StorageFailure("relational", err)
	}
	out := make([]PendingEntry, 0, len(due))
	for _, si := range due {
		entry := PendingEntry{Intent: si}
		if intent.IsConditionTrigger(si.TriggerType) && si.LastConditionFire != nil {
			cooldownEnd := si.LastConditionFire.Add(time.Duration(si.Condition.CooldownHours) * time.Hour)
			entry.CooldownActive = s.now().Before(cooldownEnd)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Claim atomically stamps claimed_at on ids, preventing two workers from
// firing the same intent within ttl.
func (s *Service) Claim(ctx context.Context, ids []string, ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	claimed, err := s.store.ClaimIntents(ctx, ids, ttl)
	if err != nil {
		return nil, apperrors.StorageFailure("relational", err)
	}
	return claimed, nil
}

// FireRequest is the body of POST /v1/intents/{id}/fire.
type FireRequest struct {
	Status         intent.ExecutionStatus
	TriggerData    map[string]interface{}
	GateResult     string
	MessageID      string
	MessagePreview string
	TimingMS       int64
	ErrorMessage   string
	CorrelationID  string
}

// FireResult is returned to the proactive worker.
type FireResult struct {
	Execution              intent.Execution
	NextCheck              *time.Time
	CooldownActive         bool
	CooldownRemainingHours float64
	Disabled               bool
	DisabledReason         string
}

// Fire records the outcome of a proactive worker's attempt to act on an
// intent, enforcing cooldown and fire-mode/max-executions semantics
// (spec.md §4.7).
func (s *Service) Fire(ctx context.Context, intentID string, req FireRequest) (FireResult, error) {
	si, ok, err := s.store.GetIntent(ctx, intentID)
	if err != nil {
		return FireResult{}, apperrors.StorageFailure("relational", err)
	}
	if !ok {
		return FireResult{}, apperrors.NotFound("intent", intentID)
	}

	now := s.now()
	isCondition := intent.IsConditionTrigger(si.TriggerType)

	if isCondition && req.Status == intent.StatusSuccess && si.LastConditionFire != nil {
		cooldownEnd := si.LastConditionFire.Add(time.Duration(si.Condition.CooldownHours) * time.Hour)
		if now.Before(cooldownEnd) {
			remaining := cooldownEnd.Sub(now).Hours()
			exec := intent.Execution{
				ID: "exec_" + uuid.New().String(), IntentID: intentID, ExecutedAt: now,
				TriggerType: si.TriggerType, TriggerData: req.TriggerData,
				Status: intent.StatusCooldownActive, GateResult: req.GateResult,
				MessageID: req.MessageID, TimingMS: req.TimingMS, CorrelationID: req.CorrelationID,
			}
			_ = s.store.RecordExecution(ctx, exec)
			if s.log != nil {
				s.log.LogIntentFire(ctx, intentID, string(intent.StatusCooldownActive), si.NextCheck)
			}
			return FireResult{
				Execution: exec, NextCheck: si.NextCheck,
				CooldownActive: true, CooldownRemainingHours: remaining,
			}, nil
		}
	}

	exec := intent.Execution{
		ID: "exec_" + uuid.New().String(), IntentID: intentID, ExecutedAt: now,
		TriggerType: si.TriggerType, TriggerData: req.TriggerData,
		Status: req.Status, GateResult: req.GateResult, MessageID: req.MessageID,
		TimingMS: req.TimingMS, ErrorMessage: req.ErrorMessage, CorrelationID: req.CorrelationID,
	}
	if err := s.store.RecordExecution(ctx, exec); err != nil {
		return FireResult{}, apperrors.StorageFailure("relational", err)
	}

	si.LastChecked = &now
	si.LastExecutionStatus = req.Status

	firedSuccess := req.Status == intent.StatusSuccess
	result := FireResult{Execution: exec}

	if firedSuccess {
		si.ExecutionCount++
		si.LastExecuted = &now
		if isCondition {
			si.LastConditionFire = &now
		}

		if si.TriggerType == intent.TriggerOnce || (isCondition && si.Condition.FireMode == intent.FireOnce) {
			si.Enabled = false
			si.DisabledReason = "fire_mode_once"
		} else if si.MaxExecutions != nil && si.ExecutionCount >= *si.MaxExecutions {
			si.Enabled = false
			si.DisabledReason = "max_executions_reached"
		}
	}

	if !si.Enabled {
		result.Disabled = true
		result.DisabledReason = si.DisabledReason
		si.NextCheck = nil
	} else {
		next, err := s.computeNextCheck(si, firedSuccess, now)
		if err != nil {
			return FireResult{}, apperrors.Internal("compute next_check", err)
		}
		si.NextCheck = next
	}
	result.NextCheck = si.NextCheck

	if _, err := s.store.UpdateIntent(ctx, si); err != nil {
		return FireResult{}, apperrors.StorageFailure("relational", err)
	}

	if s.log != nil {
		s.log.LogIntentFire(ctx, intentID, string(req.Status), si.NextCheck)
	}
	return result, nil
}

// computeNextCheck derives the next poll/fire time per spec.md §4.7:
// cron → next occurrence in the intent's timezone; interval → now + minutes;
// once → nil; condition → now + max(check_interval, cooldown_hours*60) on
// success, otherwise now + check_interval.
func (s *Service) computeNextCheck(si intent.ScheduledIntent, firedSuccess bool, now time.Time) (*time.Time, error) {
	switch si.TriggerType {
	case intent.TriggerCron:
		loc, err := time.LoadLocation(si.Schedule.Timezone)
		if err != nil {
			loc = time.UTC
		}
		schedule, err := cronParser.Parse(si.Schedule.CronExpression)
		if err != nil {
			return nil, fmt.Errorf("parse cron expression: %w", err)
		}
		next := schedule.Next(now.In(loc)).UTC()
		return &next, nil

	case intent.TriggerInterval:
		next := now.Add(time.Duration(si.Schedule.IntervalMinutes) * time.Minute)
		return &next, nil

	case intent.TriggerOnce:
		return nil, nil

	case intent.TriggerPrice, intent.TriggerSilence, intent.TriggerPortfolio:
		checkInterval := si.Schedule.CheckIntervalMinutes
		if checkInterval < minCheckIntervalMinutes {
			checkInterval = minCheckIntervalMinutes
		}
		minutes := checkInterval
		if firedSuccess {
			cooldownMinutes := si.Condition.CooldownHours * 60
			if cooldownMinutes > minutes {
				minutes = cooldownMinutes
			}
		}
		next := now.Add(time.Duration(minutes) * time.Minute)
		return &next, nil

	default:
		return nil, fmt.Errorf("unrecognized trigger type %q", si.TriggerType)
	}
}
