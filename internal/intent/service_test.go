package intent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/intent"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/memstore"
)

func newTestService(clock func() time.Time) (*Service, *memstore.Relational) {
	store := memstore.NewRelational()
	svc := New(store, nil).WithClock(clock)
	return svc, store
}

func TestCreate_ConditionTrigger_SetsNextCheck(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(func() time.Time { return now })

	created, err := svc.Create(context.Background(), intent.ScheduledIntent{
		UserID:      "u1",
		IntentName:  "nvda-dip",
		TriggerType: intent.TriggerPrice,
		Schedule:    intent.TriggerSchedule{CheckIntervalMinutes: 5},
		Condition: intent.TriggerCondition{
			Expression: "NVDA < 130", CooldownHours: 24, FireMode: intent.FireRecurring,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created.NextCheck)
	require.Equal(t, now.Add(5*time.Minute), *created.NextCheck)
}

func TestCreate_RejectsBadCooldown(t *testing.T) {
	svc, _ := newTestService(time.Now)
	_, err := svc.Create(context.Background(), intent.ScheduledIntent{
		UserID: "u1", IntentName: "x", TriggerType: intent.TriggerPrice,
		Condition: intent.TriggerCondition{Expression: "NVDA < 130", CooldownHours: 0},
	})
	require.Error(t, err)
}

// TestCooldownEnforcement exercises scenario S3 from spec.md §8: two
// successive successful fires within the cooldown window must be separated
// by at least cooldown_hours of wall clock, and a fire within the window
// returns cooldown_active without mutating last_condition_fire.
func TestCooldownEnforcement(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clockTime := t0
	svc, _ := newTestService(func() time.Time { return clockTime })

	created, err := svc.Create(context.Background(), intent.ScheduledIntent{
		UserID: "u1", IntentName: "nvda-dip", TriggerType: intent.TriggerPrice,
		Schedule: intent.TriggerSchedule{CheckIntervalMinutes: 5},
		Condition: intent.TriggerCondition{
			Expression: "NVDA < 130", CooldownHours: 24, FireMode: intent.FireRecurring,
		},
	})
	require.NoError(t, err)

	res, err := svc.Fire(context.Background(), created.ID, FireRequest{Status: intent.StatusSuccess})
	require.NoError(t, err)
	require.False(t, res.CooldownActive)

	clockTime = t0.Add(1 * time.Hour)
	res2, err := svc.Fire(context.Background(), created.ID, FireRequest{Status: intent.StatusSuccess})
	require.NoError(t, err)
	require.True(t, res2.CooldownActive)
	require.InDelta(t, 23.0, res2.CooldownRemainingHours, 0.01)

	clockTime = t0.Add(25 * time.Hour)
	res3, err := svc.Fire(context.Background(), created.ID, FireRequest{Status: intent.StatusSuccess})
	require.NoError(t, err)
	require.False(t, res3.CooldownActive)
}

// TestFireModeOnceDisables exercises S5: a once-mode intent disables itself
// after its first successful fire, and is never returned by Pending again.
func TestFireModeOnceDisables(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, store := newTestService(func() time.Time { return now })

	created, err := svc.Create(context.Background(), intent.ScheduledIntent{
		UserID: "u1", IntentName: "one-shot", TriggerType: intent.TriggerOnce,
		Schedule: intent.TriggerSchedule{FireAt: &now},
	})
	require.NoError(t, err)

	_, _ = store.UpdateIntent(context.Background(), func() intent.ScheduledIntent {
		si, _, _ := store.GetIntent(context.Background(), created.ID)
		nc := now.Add(-time.Minute)
		si.NextCheck = &nc
		return si
	}())

	pending, err := svc.Pending(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	res, err := svc.Fire(context.Background(), created.ID, FireRequest{Status: intent.StatusSuccess})
	require.NoError(t, err)
	require.True(t, res.Disabled)
	require.Equal(t, "fire_mode_once", res.DisabledReason)

	pendingAfter, err := svc.Pending(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, pendingAfter)
}

func TestMaxExecutionsDisables(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(func() time.Time { return now })
	maxExec := 1

	created, err := svc.Create(context.Background(), intent.ScheduledIntent{
		UserID: "u1", IntentName: "limited", TriggerType: intent.TriggerInterval,
		Schedule:      intent.TriggerSchedule{IntervalMinutes: 30},
		MaxExecutions: &maxExec,
	})
	require.NoError(t, err)

	res, err := svc.Fire(context.Background(), created.ID, FireRequest{Status: intent.StatusSuccess})
	require.NoError(t, err)
	require.True(t, res.Disabled)
	require.Equal(t, "max_executions_reached", res.DisabledReason)
}

func TestCronNextCheck_RespectsTimezone(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(func() time.Time { return now })

	created, err := svc.Create(context.Background(), intent.ScheduledIntent{
		UserID: "u1", IntentName: "daily-briefing", TriggerType: intent.TriggerCron,
		Schedule: intent.TriggerSchedule{CronExpression: "0 9 * * *", Timezone: "America/Los_Angeles"},
	})
	require.NoError(t, err)
	require.NotNil(t, created.NextCheck)
	require.True(t, created.NextCheck.After(now))
}
