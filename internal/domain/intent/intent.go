// Package intent defines the ScheduledIntent and IntentExecution entities
// the scheduled-intent engine operates on (spec §3.1, §4.7).
package intent

import "time"

// TriggerType is the kind of schedule/condition driving an intent.
type TriggerType string

const (
	TriggerCron      TriggerType = "cron"
	TriggerInterval  TriggerType = "interval"
	TriggerOnce      TriggerType = "once"
	TriggerPrice     TriggerType = "price"
	TriggerSilence   TriggerType = "silence"
	TriggerPortfolio TriggerType = "portfolio"
)

// ActionType classifies what the proactive worker does when an intent fires.
type ActionType string

const (
	ActionNotify   ActionType = "notify"
	ActionCheckIn  ActionType = "check_in"
	ActionBriefing ActionType = "briefing"
	ActionAnalysis ActionType = "analysis"
	ActionReminder ActionType = "reminder"
)

// ActionPriority orders competing proactive actions for a user.
type ActionPriority string

const (
	PriorityLow      ActionPriority = "low"
	PriorityNormal   ActionPriority = "normal"
	PriorityHigh     ActionPriority = "high"
	PriorityCritical ActionPriority = "critical"
)

// FireMode controls whether an intent disables itself after one success.
type FireMode string

const (
	FireOnce      FireMode = "once"
	FireRecurring FireMode = "recurring"
)

// ExecutionStatus is the outcome recorded by a fire callback.
type ExecutionStatus string

const (
	StatusSuccess         ExecutionStatus = "success"
	StatusFailed          ExecutionStatus = "failed"
	StatusGateBlocked     ExecutionStatus = "gate_blocked"
	StatusConditionNotMet ExecutionStatus = "condition_not_met"
	StatusCooldownActive  ExecutionStatus = "cooldown_active"
)

// TriggerSchedule carries the scheduling half of an intent: either a cron
// expression, an interval in minutes, or a one-shot fire-at time.
type TriggerSchedule struct {
	CronExpression       string
	IntervalMinutes      int
	FireAt               *time.Time
	Timezone             string // IANA name, default America/Los_Angeles
	CheckIntervalMinutes int    // >= 5
}

// TriggerCondition carries the condition half of an intent for non-time
// trigger types (price, silence, portfolio).
type TriggerCondition struct {
	ConditionType   string // mirrors TriggerType for condition-bearing intents
	Expression      string
	CooldownHours   int // [1,168]
	FireMode        FireMode
	LegacyTicker    string
	LegacyOperator  string
	LegacyValue     float64
	LegacyThreshold float64
}

// ScheduledIntent is a relational-store record describing a proactive trigger.
type ScheduledIntent struct {
	ID                string
	UserID            string
	IntentName        string
	Description       string
	TriggerType       TriggerType
	Schedule          TriggerSchedule
	Condition         TriggerCondition
	ActionType        ActionType
	ActionContext     string
	ActionPriority    ActionPriority
	NextCheck         *time.Time
	LastChecked       *time.Time
	LastExecuted      *time.Time
	ExecutionCount    int
	LastExecutionStatus ExecutionStatus
	Enabled           bool
	ExpiresAt         *time.Time
	MaxExecutions     *int
	LastConditionFire *time.Time
	ClaimedAt         *time.Time
	DisabledReason    string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Execution is an immutable audit row produced by a fire callback.
type Execution struct {
	ID            string
	IntentID      string
	ExecutedAt    time.Time
	TriggerType   TriggerType
	TriggerData   map[string]interface{}
	Status        ExecutionStatus
	GateResult    string
	MessageID     string
	TimingMS      int64
	ErrorMessage  string
	CorrelationID string
}

// IsConditionTrigger reports whether t requires cooldown/condition semantics
// rather than pure time-based scheduling.
func IsConditionTrigger(t TriggerType) bool {
	switch t {
	case TriggerPrice, TriggerSilence, TriggerPortfolio:
		return true
	}
	return false
}

// ClampCooldownHours clamps to [1,168] per spec §4.7 validation.
func ClampCooldownHours(h int) int {
	if h < 1 {
		return 1
	}
	if h > 168 {
		return 168
	}
	return h
}
