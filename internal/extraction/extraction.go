// Package extraction implements the worthiness → context-retrieval →
// extract → classify → enrich → persist pipeline (spec.md §4.3). The
// worthiness stage is a single call to the llmclient.Worthiness
// collaborator; the pipeline runs no heuristic tier of its own before it.
package extraction

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/memory"
	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/portfolio"
	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
	"github.com/ankitaa186/agentic-memories-sub004/internal/llmclient"
	"github.com/ankitaa186/agentic-memories-sub004/internal/logging"
	"github.com/ankitaa186/agentic-memories-sub004/internal/orchestrator/persistence"
	"github.com/ankitaa186/agentic-memories-sub004/internal/retrieval"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

const (
	digestLimit        = 5
	dedupCosineCutoff  = 0.95
	maxPersonaTags     = 10
)

var personaVocabulary = map[string][]string{
	"finance": {"stock", "invest", "portfolio", "shares", "dividend", "market", "money", "budget"},
	"health":  {"doctor", "workout", "diet", "sleep", "medication", "symptom", "gym"},
	"work":    {"deadline", "meeting", "project", "manager", "coworker", "promotion"},
	"travel":  {"flight", "vacation", "trip", "passport", "hotel"},
	"family":  {"spouse", "kids", "parents", "sibling", "wedding"},
}

var (
	creditCardPattern = regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)
	ssnPattern        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
)

// Input is the ingestion request, mirroring spec §4.3's input contract.
type Input struct {
	UserID  string
	History []llmclient.Turn
}

// Counters tallies the outcome of one pipeline run.
type Counters struct {
	MemoriesCreated        int
	DuplicatesAvoided      int
	UpdatesMade            int
	ExistingMemoriesChecked int
}

// Output is the pipeline result.
type Output struct {
	Memories []memory.Memory
	Counters Counters
}

// Pipeline wires the worthiness filter, extractor, persistence orchestrator
// and hybrid retrieval engine into the six ordered stages of spec §4.3.
type Pipeline struct {
	worthiness llmclient.Worthiness
	extractor  llmclient.Extractor
	embedder   llmclient.Embedder
	retrieval  *retrieval.Engine
	persist    *persistence.Orchestrator
	vector     storage.VectorAdapter
	log        *logging.Logger
	now        func() time.Time
}

func New(worthiness llmclient.Worthiness, extractor llmclient.Extractor, embedder llmclient.Embedder, retr *retrieval.Engine, persist *persistence.Orchestrator, vectorAdapter storage.VectorAdapter, log *logging.Logger) *Pipeline {
	return &Pipeline{
		worthiness: worthiness, extractor: extractor, embedder: embedder,
		retrieval: retr, persist: persist, vector: vectorAdapter, log: log, now: time.Now,
	}
}

// WithClock overrides the pipeline's clock (test hook).
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run executes all six stages against in.
func (p *Pipeline) Run(ctx context.Context, in Input) (Output, error) {
	start := time.Now()
	out := Output{}

	if len(in.History) == 0 {
		return out, nil
	}

	verdict, err := p.worthiness.Judge(ctx, in.History)
	if err != nil {
		return out, apperrors.Internal("worthiness check failed", err)
	}
	if !verdict.Worthy {
		return out, nil
	}

	lastUserMsg := lastUserMessage(in.History)
	var digest []llmclient.DigestEntry
	if lastUserMsg != "" && p.retrieval != nil {
		res, rErr := p.retrieval.Retrieve(ctx, in.UserID, lastUserMsg, retrieval.Filters{}, digestLimit, 0, retrieval.Options{})
		if rErr == nil {
			for _, m := range res.Memories {
				digest = append(digest, llmclient.DigestEntry{ID: m.ID, Content: m.Document, Layer: stringMeta(m.Metadata, "layer")})
			}
		}
	}
	out.Counters.ExistingMemoriesChecked = len(digest)

	candidates, err := p.extractor.Extract(ctx, in.History, digest)
	if err != nil {
		return out, apperrors.Internal("extraction failed", err)
	}
	if len(candidates) == 0 {
		return out, nil
	}

	classified := make([]memory.Memory, 0, len(candidates))
	now := p.now()
	for _, c := range candidates {
		m, ok := p.classify(in.UserID, c, now)
		if !ok {
			continue
		}
		classified = append(classified, m)
	}

	deduped, dropped := dedupeBatch(classified)
	out.Counters.DuplicatesAvoided += dropped

	for i := range deduped {
		enrich(&deduped[i])
	}

	for _, m := range deduped {
		embedding, embErr := p.embedder.Embed(ctx, m.Content)
		if embErr != nil {
			return out, apperrors.EmbeddingUnavailable(embErr)
		}
		m.Embedding = embedding

		existed := p.memoryExists(ctx, m.ID)

		episodic, emotional, procedural, holding := BuildTypedProjections(m)

		plan := persistence.DerivePlan(m, episodic, emotional, procedural, holding)
		if _, pErr := p.persist.Persist(ctx, plan); pErr != nil {
			return out, pErr
		}

		if existed {
			out.Counters.UpdatesMade++
		} else {
			out.Counters.MemoriesCreated++
		}
		out.Memories = append(out.Memories, m)
	}

	if p.log != nil {
		p.log.LogIngestion(ctx, in.UserID, out.Counters.MemoriesCreated, out.Counters.DuplicatesAvoided, out.Counters.UpdatesMade, time.Since(start))
	}
	return out, nil
}

func (p *Pipeline) memoryExists(ctx context.Context, id string) bool {
	matches, err := p.vector.Get(ctx, []string{id})
	return err == nil && len(matches) > 0
}

// classify implements stage 4: clamps numeric fields, rejects unknown enum
// values, strips PII patterns, and assigns the deterministic id.
func (p *Pipeline) classify(userID string, c llmclient.CandidateMemory, now time.Time) (memory.Memory, bool) {
	layer := memory.Layer(c.Layer)
	if !memory.ValidLayer(layer) {
		return memory.Memory{}, false
	}
	kind := memory.Kind(c.Type)
	if !memory.ValidKind(kind) {
		return memory.Memory{}, false
	}

	content := stripPII(c.Content)
	if strings.TrimSpace(content) == "" {
		return memory.Memory{}, false
	}

	m := memory.Memory{
		ID:          memory.DeterministicID(userID, content, now),
		UserID:      userID,
		Content:     content,
		Layer:       layer,
		Type:        kind,
		Importance:  memory.Clamp01(c.Importance),
		Confidence:  memory.Clamp01(c.Confidence),
		CreatedAt:   now,
		UpdatedAt:   now,
		Tags:        c.Tags,
		PersonaTags: c.PersonaTags,
		Source:      memory.SourceOrchestrator,
		Metadata:    map[string]interface{}{},
	}
	for k, v := range c.TypedFields {
		m.Metadata[k] = v
	}
	return m, true
}

// stripPII redacts credit-card-like and SSN-like sequences (spec §4.3 stage 4).
func stripPII(content string) string {
	content = creditCardPattern.ReplaceAllString(content, "[REDACTED]")
	content = ssnPattern.ReplaceAllString(content, "[REDACTED]")
	return content
}

// enrich implements stage 5: persona-tag inference and ticker normalization.
func enrich(m *memory.Memory) {
	detected := detectPersonaTags(m.Content)
	tagSet := make(map[string]bool, len(m.PersonaTags))
	for _, t := range m.PersonaTags {
		tagSet[t] = true
	}
	for _, t := range detected {
		tagSet[t] = true
	}
	merged := make([]string, 0, len(tagSet))
	for t := range tagSet {
		merged = append(merged, t)
	}
	sort.Strings(merged)
	if len(merged) > maxPersonaTags {
		merged = merged[:maxPersonaTags]
	}
	m.PersonaTags = merged

	if raw, ok := m.Metadata["ticker"].(string); ok {
		ticker := strings.ToUpper(strings.TrimSpace(raw))
		if portfolio.ValidTicker(ticker) {
			m.Metadata["ticker"] = ticker
		} else {
			delete(m.Metadata, "ticker")
		}
	}
}

// BuildTypedProjections derives the typed-store rows from a memory's
// metadata (originally the extractor's typed_fields, spec §4.3 stage 3),
// following the field names listed in spec.md §3.1. Exported so the
// direct-store HTTP endpoint (spec.md §6.1) can derive the same projections
// from caller-supplied typed fields without duplicating the field mapping.
func BuildTypedProjections(m memory.Memory) (*memory.Episodic, *memory.Emotional, *memory.Procedural, *portfolio.Holding) {
	md := m.Metadata
	var episodic *memory.Episodic
	var emotional *memory.Emotional
	var procedural *memory.Procedural
	var holding *portfolio.Holding

	if ts, ok := md["event_timestamp"].(time.Time); ok {
		episodic = &memory.Episodic{
			MemoryID: m.ID, UserID: m.UserID, EventTimestamp: ts,
			EventType: stringMeta(md, "event_type"), Location: stringMeta(md, "location"),
			EmotionalValence: memory.ClampSigned(floatMeta(md, "emotional_valence")),
			EmotionalArousal: memory.Clamp01(floatMeta(md, "emotional_arousal")),
			ImportanceScore:  memory.Clamp01(floatMeta(md, "importance_score")),
			CreatedAt:        m.CreatedAt, UpdatedAt: m.UpdatedAt,
		}
	}

	if state := stringMeta(md, "emotional_state"); state != "" {
		emotional = &memory.Emotional{
			MemoryID: m.ID, UserID: m.UserID, Timestamp: m.CreatedAt,
			EmotionalState: state,
			Valence:        memory.ClampSigned(floatMeta(md, "valence")),
			Arousal:        memory.Clamp01(floatMeta(md, "arousal")),
			Dominance:      memory.Clamp01(floatMeta(md, "dominance")),
			Intensity:      memory.Clamp01(floatMeta(md, "intensity")),
			Duration:       floatMeta(md, "duration"),
			TriggerEvent:   stringMeta(md, "trigger_event"),
			CreatedAt:      m.CreatedAt, UpdatedAt: m.UpdatedAt,
		}
	}

	if skill := stringMeta(md, "skill_name"); skill != "" {
		level := memory.ProficiencyLevel(stringMeta(md, "proficiency_level"))
		if !memory.ValidProficiency(level) {
			level = memory.ProficiencyBeginner
		}
		procedural = &memory.Procedural{
			MemoryID: m.ID, UserID: m.UserID, SkillName: skill, ProficiencyLevel: level,
			PracticeCount:    int(floatMeta(md, "practice_count")),
			SuccessRate:      memory.Clamp01(floatMeta(md, "success_rate")),
			DifficultyRating: memory.Clamp01(floatMeta(md, "difficulty_rating")),
			CreatedAt:        m.CreatedAt, UpdatedAt: m.UpdatedAt,
		}
	}

	if ticker, ok := md["ticker"].(string); ok && portfolio.ValidTicker(ticker) {
		holding = &portfolio.Holding{
			UserID: m.UserID, Ticker: ticker, AssetName: stringMeta(md, "asset_name"),
			Shares: floatMeta(md, "shares"), AvgPrice: floatMeta(md, "avg_price"),
			FirstAcquired: m.CreatedAt, LastUpdated: m.CreatedAt,
		}
	}

	return episodic, emotional, procedural, holding
}

func floatMeta(md map[string]interface{}, key string) float64 {
	switch v := md[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func detectPersonaTags(content string) []string {
	lower := strings.ToLower(content)
	var tags []string
	for persona, keywords := range personaVocabulary {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, persona)
				break
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// dedupeBatch implements spec §4.3's tie-break rule: within one extraction
// batch, candidates with cosine similarity >= 0.95 and identical layer
// collapse to the higher-importance one (earlier wins on a tie).
func dedupeBatch(mems []memory.Memory) ([]memory.Memory, int) {
	keep := make([]bool, len(mems))
	for i := range mems {
		keep[i] = true
	}
	dropped := 0
	for i := 0; i < len(mems); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(mems); j++ {
			if !keep[j] || mems[i].Layer != mems[j].Layer {
				continue
			}
			if contentSimilarity(mems[i].Content, mems[j].Content) < dedupCosineCutoff {
				continue
			}
			if mems[j].Importance > mems[i].Importance {
				keep[i] = false
				dropped++
				break
			}
			keep[j] = false
			dropped++
		}
	}

	out := make([]memory.Memory, 0, len(mems))
	for i, m := range mems {
		if keep[i] {
			out = append(out, m)
		}
	}
	return out, dropped
}

// contentSimilarity is a placeholder cheap proxy for cosine similarity over
// un-embedded candidates: exact-normalized-match scores 1, otherwise 0. Real
// near-duplicate detection on embedded content happens in
// internal/maintenance's compaction job, which has access to persisted
// vectors; this batch-local check only needs to catch literal repeats from a
// single extraction call.
func contentSimilarity(a, b string) float64 {
	if normalize(a) == normalize(b) {
		return 1
	}
	return 0
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func lastUserMessage(history []llmclient.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			return history[i].Content
		}
	}
	return ""
}

func stringMeta(md map[string]interface{}, key string) string {
	if v, ok := md[key].(string); ok {
		return v
	}
	return ""
}
