package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/intent"
)

// pqArray adapts a []string for storage in a text[] column.
func pqArray(vals []string) interface{} {
	return pq.Array(vals)
}

// pqArrayScan adapts a *[]string destination for scanning a text[] column.
func pqArrayScan(dest *[]string) interface{} {
	return pq.Array(dest)
}

func encodeSchedule(s intent.TriggerSchedule) string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func decodeSchedule(raw string) intent.TriggerSchedule {
	var s intent.TriggerSchedule
	_ = json.Unmarshal([]byte(raw), &s)
	return s
}

func encodeCondition(c intent.TriggerCondition) string {
	b, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func decodeCondition(raw string) intent.TriggerCondition {
	var c intent.TriggerCondition
	_ = json.Unmarshal([]byte(raw), &c)
	return c
}

const intentSelectSQL = `
	SELECT id, user_id, intent_name, description, trigger_type, trigger_schedule, trigger_condition,
	       action_type, action_context, action_priority, next_check, last_checked, last_executed,
	       execution_count, last_execution_status, enabled, expires_at, max_executions,
	       last_condition_fire, claimed_at, created_at, updated_at
	FROM scheduled_intents`

// rowScanner abstracts *sql.Row / *sql.Rows for a single intent scan.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntentInto(row rowScanner) (intent.ScheduledIntent, error) {
	var si intent.ScheduledIntent
	var triggerType, actionType, actionPriority, lastExecutionStatus string
	var scheduleJSON, conditionJSON string
	var description, actionContext, disabledReason sql.NullString
	var nextCheck, lastChecked, lastExecuted, expiresAt, lastConditionFire, claimedAt sql.NullTime
	var maxExecutions sql.NullInt64

	if err := row.Scan(
		&si.ID, &si.UserID, &si.IntentName, &description, &triggerType, &scheduleJSON, &conditionJSON,
		&actionType, &actionContext, &actionPriority, &nextCheck, &lastChecked, &lastExecuted,
		&si.ExecutionCount, &lastExecutionStatus, &si.Enabled, &expiresAt, &maxExecutions,
		&lastConditionFire, &claimedAt, &si.CreatedAt, &si.UpdatedAt,
	); err != nil {
		return intent.ScheduledIntent{}, err
	}

	si.Description = description.String
	si.ActionContext = actionContext.String
	si.DisabledReason = disabledReason.String
	si.TriggerType = intent.TriggerType(triggerType)
	si.ActionType = intent.ActionType(actionType)
	si.ActionPriority = intent.ActionPriority(actionPriority)
	si.LastExecutionStatus = intent.ExecutionStatus(lastExecutionStatus)
	si.Schedule = decodeSchedule(scheduleJSON)
	si.Condition = decodeCondition(conditionJSON)

	if nextCheck.Valid {
		si.NextCheck = &nextCheck.Time
	}
	if lastChecked.Valid {
		si.LastChecked = &lastChecked.Time
	}
	if lastExecuted.Valid {
		si.LastExecuted = &lastExecuted.Time
	}
	if expiresAt.Valid {
		si.ExpiresAt = &expiresAt.Time
	}
	if lastConditionFire.Valid {
		si.LastConditionFire = &lastConditionFire.Time
	}
	if claimedAt.Valid {
		si.ClaimedAt = &claimedAt.Time
	}
	if maxExecutions.Valid {
		n := int(maxExecutions.Int64)
		si.MaxExecutions = &n
	}

	return si, nil
}

func scanIntent(row *sql.Row) (intent.ScheduledIntent, error) {
	return scanIntentInto(row)
}

func scanIntentRows(rows *sql.Rows) (intent.ScheduledIntent, error) {
	return scanIntentInto(rows)
}
