// Package postgres implements the relational adapter over database/sql and
// lib/pq, grounded on the teacher's pkg/storage/postgres.BaseStore idiom.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/intent"
	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/memory"
	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/portfolio"
	pgbase "github.com/ankitaa186/agentic-memories-sub004/internal/platform/database"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

// Store implements storage.RelationalAdapter over a single PostgreSQL pool.
type Store struct {
	db     *sql.DB
	intents *pgbase.BaseStore
	locks  *pgbase.BaseStore
}

// Open connects to dsn and configures the pool per cfg.
func Open(dsn string, maxOpen, maxIdle, connMaxLifetimeSeconds int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(time.Duration(connMaxLifetimeSeconds) * time.Second)
	return NewStore(db), nil
}

// NewStore wraps an already-configured pool.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		intents: pgbase.NewBaseStore(db, "scheduled_intents"),
		locks:   pgbase.NewBaseStore(db, "migration_locks"),
	}
}

var _ storage.RelationalAdapter = (*Store)(nil)

func toJSON(v interface{}) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// --- Typed memory projections ---

func (s *Store) UpsertEpisodic(ctx context.Context, e memory.Episodic) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodic_memories
			(memory_id, user_id, event_timestamp, event_type, location, participants,
			 emotional_valence, emotional_arousal, importance_score, source_episodes, archived, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, now(), now())
		ON CONFLICT (memory_id) DO UPDATE SET
			event_timestamp = EXCLUDED.event_timestamp,
			event_type = EXCLUDED.event_type,
			location = EXCLUDED.location,
			participants = EXCLUDED.participants,
			emotional_valence = EXCLUDED.emotional_valence,
			emotional_arousal = EXCLUDED.emotional_arousal,
			importance_score = EXCLUDED.importance_score,
			source_episodes = EXCLUDED.source_episodes,
			archived = EXCLUDED.archived,
			updated_at = now()`,
		e.MemoryID, e.UserID, e.EventTimestamp, e.EventType, e.Location,
		pqArray(e.Participants), e.EmotionalValence, e.EmotionalArousal, e.ImportanceScore,
		pqArray(e.SourceEpisodes), e.Archived)
	if err != nil {
		return fmt.Errorf("upsert episodic: %w", err)
	}
	return nil
}

func (s *Store) UpsertEmotional(ctx context.Context, e memory.Emotional) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emotional_memories
			(memory_id, user_id, timestamp, emotional_state, valence, arousal, dominance, intensity, duration, trigger_event, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, now(), now())
		ON CONFLICT (memory_id) DO UPDATE SET
			timestamp = EXCLUDED.timestamp,
			emotional_state = EXCLUDED.emotional_state,
			valence = EXCLUDED.valence,
			arousal = EXCLUDED.arousal,
			dominance = EXCLUDED.dominance,
			intensity = EXCLUDED.intensity,
			duration = EXCLUDED.duration,
			trigger_event = EXCLUDED.trigger_event,
			updated_at = now()`,
		e.MemoryID, e.UserID, e.Timestamp, e.EmotionalState, e.Valence, e.Arousal, e.Dominance, e.Intensity, e.Duration, e.TriggerEvent)
	if err != nil {
		return fmt.Errorf("upsert emotional: %w", err)
	}
	return nil
}

func (s *Store) UpsertProcedural(ctx context.Context, p memory.Procedural) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO procedural_memories
			(memory_id, user_id, skill_name, proficiency_level, practice_count, success_rate, difficulty_rating, prerequisites, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8, now(), now())
		ON CONFLICT (memory_id) DO UPDATE SET
			skill_name = EXCLUDED.skill_name,
			proficiency_level = EXCLUDED.proficiency_level,
			practice_count = EXCLUDED.practice_count,
			success_rate = EXCLUDED.success_rate,
			difficulty_rating = EXCLUDED.difficulty_rating,
			prerequisites = EXCLUDED.prerequisites,
			updated_at = now()`,
		p.MemoryID, p.UserID, p.SkillName, string(p.ProficiencyLevel), p.PracticeCount, p.SuccessRate, p.DifficultyRating, pqArray(p.Prerequisites))
	if err != nil {
		return fmt.Errorf("upsert procedural: %w", err)
	}
	return nil
}

func (s *Store) GetIdentity(ctx context.Context, userID string) (memory.Identity, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, core_values, self_concept, ideal_self, feared_self, life_roles,
		       personality_traits, growth_edges, contradictions, created_at, updated_at
		FROM identity_memories WHERE user_id = $1`, userID)

	var i memory.Identity
	var traitsJSON string
	if err := row.Scan(&i.UserID, pqArrayScan(&i.CoreValues), &i.SelfConcept, &i.IdealSelf, &i.FearedSelf,
		pqArrayScan(&i.LifeRoles), &traitsJSON, pqArrayScan(&i.GrowthEdges), pqArrayScan(&i.Contradictions),
		&i.CreatedAt, &i.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return memory.Identity{}, false, nil
		}
		return memory.Identity{}, false, fmt.Errorf("get identity: %w", err)
	}
	_ = json.Unmarshal([]byte(traitsJSON), &i.PersonalityTraits)
	return i, true, nil
}

func (s *Store) UpsertIdentity(ctx context.Context, i memory.Identity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identity_memories
			(user_id, core_values, self_concept, ideal_self, feared_self, life_roles, personality_traits, growth_edges, contradictions, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET
			core_values = EXCLUDED.core_values,
			self_concept = EXCLUDED.self_concept,
			ideal_self = EXCLUDED.ideal_self,
			feared_self = EXCLUDED.feared_self,
			life_roles = EXCLUDED.life_roles,
			personality_traits = EXCLUDED.personality_traits,
			growth_edges = EXCLUDED.growth_edges,
			contradictions = EXCLUDED.contradictions,
			updated_at = now()`,
		i.UserID, pqArray(i.CoreValues), i.SelfConcept, i.IdealSelf, i.FearedSelf,
		pqArray(i.LifeRoles), toJSON(i.PersonalityTraits), pqArray(i.GrowthEdges), pqArray(i.Contradictions))
	if err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}

// DeleteTypedByMemoryID removes typed rows per the stored_in_* flags so
// delete only targets the stores actually used (spec §4.2 routing metadata).
func (s *Store) DeleteTypedByMemoryID(ctx context.Context, memoryID string, episodic, emotional, procedural bool) error {
	if episodic {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM episodic_memories WHERE memory_id = $1`, memoryID); err != nil {
			return fmt.Errorf("delete episodic: %w", err)
		}
	}
	if emotional {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM emotional_memories WHERE memory_id = $1`, memoryID); err != nil {
			return fmt.Errorf("delete emotional: %w", err)
		}
	}
	if procedural {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM procedural_memories WHERE memory_id = $1`, memoryID); err != nil {
			return fmt.Errorf("delete procedural: %w", err)
		}
	}
	return nil
}

// --- Portfolio ---

func (s *Store) UpsertHolding(ctx context.Context, h portfolio.Holding) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_holdings (user_id, ticker, asset_name, shares, avg_price, first_acquired, last_updated)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (user_id, ticker) DO UPDATE SET
			asset_name = EXCLUDED.asset_name,
			shares = EXCLUDED.shares,
			avg_price = EXCLUDED.avg_price,
			last_updated = EXCLUDED.last_updated`,
		h.UserID, h.Ticker, h.AssetName, h.Shares, h.AvgPrice, h.FirstAcquired, h.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}
	return nil
}

func (s *Store) GetHolding(ctx context.Context, userID, ticker string) (portfolio.Holding, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, ticker, asset_name, shares, avg_price, first_acquired, last_updated
		FROM portfolio_holdings WHERE user_id = $1 AND ticker = $2`, userID, ticker)

	var h portfolio.Holding
	if err := row.Scan(&h.UserID, &h.Ticker, &h.AssetName, &h.Shares, &h.AvgPrice, &h.FirstAcquired, &h.LastUpdated); err != nil {
		if err == sql.ErrNoRows {
			return portfolio.Holding{}, false, nil
		}
		return portfolio.Holding{}, false, fmt.Errorf("get holding: %w", err)
	}
	return h, true, nil
}

func (s *Store) ListHoldings(ctx context.Context, userID string) ([]portfolio.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, ticker, asset_name, shares, avg_price, first_acquired, last_updated
		FROM portfolio_holdings WHERE user_id = $1 ORDER BY ticker ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	defer rows.Close()

	var out []portfolio.Holding
	for rows.Next() {
		var h portfolio.Holding
		if err := rows.Scan(&h.UserID, &h.Ticker, &h.AssetName, &h.Shares, &h.AvgPrice, &h.FirstAcquired, &h.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) DeleteHolding(ctx context.Context, userID, ticker string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM portfolio_holdings WHERE user_id = $1 AND ticker = $2`, userID, ticker)
	if err != nil {
		return fmt.Errorf("delete holding: %w", err)
	}
	return nil
}

func (s *Store) AppendTransaction(ctx context.Context, tx portfolio.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_transactions (id, user_id, ticker, kind, shares, price, occurred_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7, now())`,
		tx.ID, tx.UserID, tx.Ticker, string(tx.Kind), tx.Shares, tx.Price, tx.OccurredAt)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID, ticker string) ([]portfolio.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, ticker, kind, shares, price, occurred_at, created_at
		FROM portfolio_transactions WHERE user_id = $1 AND ticker = $2 ORDER BY occurred_at ASC`, userID, ticker)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []portfolio.Transaction
	for rows.Next() {
		var tx portfolio.Transaction
		var kind string
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Ticker, &kind, &tx.Shares, &tx.Price, &tx.OccurredAt, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Kind = portfolio.TransactionKind(kind)
		out = append(out, tx)
	}
	return out, rows.Err()
}

// --- Scheduled intents ---

func (s *Store) CreateIntent(ctx context.Context, si intent.ScheduledIntent) (intent.ScheduledIntent, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_intents
			(id, user_id, intent_name, description, trigger_type, trigger_schedule, trigger_condition,
			 action_type, action_context, action_priority, next_check, enabled, expires_at, max_executions,
			 execution_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,0, now(), now())`,
		si.ID, si.UserID, si.IntentName, si.Description, string(si.TriggerType),
		encodeSchedule(si.Schedule), encodeCondition(si.Condition),
		string(si.ActionType), si.ActionContext, string(si.ActionPriority),
		si.NextCheck, si.Enabled, si.ExpiresAt, si.MaxExecutions)
	if err != nil {
		return intent.ScheduledIntent{}, fmt.Errorf("create intent: %w", err)
	}
	return si, nil
}

func (s *Store) UpdateIntent(ctx context.Context, si intent.ScheduledIntent) (intent.ScheduledIntent, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_intents SET
			intent_name=$2, description=$3, trigger_type=$4, trigger_schedule=$5, trigger_condition=$6,
			action_type=$7, action_context=$8, action_priority=$9, next_check=$10, last_checked=$11,
			last_executed=$12, execution_count=$13, last_execution_status=$14, enabled=$15, expires_at=$16,
			max_executions=$17, last_condition_fire=$18, claimed_at=$19, updated_at=now()
		WHERE id=$1`,
		si.ID, si.IntentName, si.Description, string(si.TriggerType), encodeSchedule(si.Schedule), encodeCondition(si.Condition),
		string(si.ActionType), si.ActionContext, string(si.ActionPriority), si.NextCheck, si.LastChecked,
		si.LastExecuted, si.ExecutionCount, string(si.LastExecutionStatus), si.Enabled, si.ExpiresAt,
		si.MaxExecutions, si.LastConditionFire, si.ClaimedAt)
	if err != nil {
		return intent.ScheduledIntent{}, fmt.Errorf("update intent: %w", err)
	}
	return si, nil
}

func (s *Store) GetIntent(ctx context.Context, id string) (intent.ScheduledIntent, bool, error) {
	row := s.db.QueryRowContext(ctx, intentSelectSQL+` WHERE id = $1`, id)
	si, err := scanIntent(row)
	if err == sql.ErrNoRows {
		return intent.ScheduledIntent{}, false, nil
	}
	if err != nil {
		return intent.ScheduledIntent{}, false, err
	}
	return si, true, nil
}

func (s *Store) ListIntents(ctx context.Context, userID string) ([]intent.ScheduledIntent, error) {
	rows, err := s.db.QueryContext(ctx, intentSelectSQL+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list intents: %w", err)
	}
	defer rows.Close()

	var out []intent.ScheduledIntent
	for rows.Next() {
		si, err := scanIntentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

func (s *Store) DeleteIntent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_intents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete intent: %w", err)
	}
	return nil
}

// PendingIntents implements the partial-index-friendly predicate from
// spec §4.7: enabled AND next_check IS NOT NULL AND next_check <= now().
func (s *Store) PendingIntents(ctx context.Context, userID string, now time.Time) ([]intent.ScheduledIntent, error) {
	query := intentSelectSQL + ` WHERE enabled AND next_check IS NOT NULL AND next_check <= $1`
	args := []any{now}
	if userID != "" {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}
	query += ` ORDER BY next_check ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pending intents: %w", err)
	}
	defer rows.Close()

	var out []intent.ScheduledIntent
	for rows.Next() {
		si, err := scanIntentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

// ClaimIntents stamps claimed_at on the given ids when unclaimed or stale,
// implementing the relational adapter's claim_rows primitive for the intent
// engine's claim step.
func (s *Store) ClaimIntents(ctx context.Context, ids []string, claimTTL time.Duration) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		UPDATE scheduled_intents SET claimed_at = now()
		WHERE id = ANY($1) AND (claimed_at IS NULL OR claimed_at < now() - $2::interval)
		RETURNING id`,
		pqArray(ids), fmt.Sprintf("%d seconds", int(claimTTL.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("claim intents: %w", err)
	}
	defer rows.Close()

	var claimed []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		claimed = append(claimed, id)
	}
	return claimed, rows.Err()
}

func (s *Store) RecordExecution(ctx context.Context, exec intent.Execution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO intent_executions
			(id, intent_id, executed_at, trigger_type, trigger_data, status, gate_result, message_id, timing_ms, error_message, correlation_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		exec.ID, exec.IntentID, exec.ExecutedAt, string(exec.TriggerType), toJSON(exec.TriggerData),
		string(exec.Status), exec.GateResult, exec.MessageID, exec.TimingMS, exec.ErrorMessage, exec.CorrelationID)
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

func (s *Store) ListExecutions(ctx context.Context, intentID string, limit int) ([]intent.Execution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, intent_id, executed_at, trigger_type, trigger_data, status, gate_result, message_id, timing_ms, error_message, correlation_id
		FROM intent_executions WHERE intent_id = $1 ORDER BY executed_at DESC LIMIT $2`, intentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var out []intent.Execution
	for rows.Next() {
		var e intent.Execution
		var triggerType, status, dataJSON string
		if err := rows.Scan(&e.ID, &e.IntentID, &e.ExecutedAt, &triggerType, &dataJSON, &status,
			&e.GateResult, &e.MessageID, &e.TimingMS, &e.ErrorMessage, &e.CorrelationID); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		e.TriggerType = intent.TriggerType(triggerType)
		e.Status = intent.ExecutionStatus(status)
		_ = json.Unmarshal([]byte(dataJSON), &e.TriggerData)
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Maintenance lock ---

// AcquireLock is a compare-and-set insert on migration_locks keyed by name
// with a TTL, backing the maintenance engine's per-user exclusive lock.
func (s *Store) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO migration_locks (name, locked_at, locked_by)
		VALUES ($1, now(), 'maintenance')
		ON CONFLICT (name) DO UPDATE SET locked_at = now(), locked_by = 'maintenance'
		WHERE migration_locks.locked_at < now() - $2::interval`,
		name, fmt.Sprintf("%d seconds", int(ttl.Seconds())))
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Store) ReleaseLock(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM migration_locks WHERE name = $1`, name)
	return err
}

func (s *Store) ForceUnlock(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM migration_locks WHERE name = $1`, name)
	return err
}

func (s *Store) Health(ctx context.Context) storage.Health {
	start := time.Now()
	err := s.db.PingContext(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return storage.Health{OK: false, LatencyMS: latency, Detail: err.Error()}
	}
	return storage.Health{OK: true, LatencyMS: latency}
}
