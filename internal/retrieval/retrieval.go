// Package retrieval implements the hybrid retrieval engine (spec.md §4.4):
// blended semantic/structured/graph scoring, persona weighting, partial-result
// diagnostics, pagination, and optional grounded synthesis. Scoring math is
// grounded on the same in-process cosine index exported by
// internal/storage/vector; the degraded-branch diagnostics mirror the
// teacher's Health-probe-then-continue pattern used across its adapters.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/portfolio"
	"github.com/ankitaa186/agentic-memories-sub004/internal/errors"
	"github.com/ankitaa186/agentic-memories-sub004/internal/llmclient"
	"github.com/ankitaa186/agentic-memories-sub004/internal/logging"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

const (
	weightSemantic   = 0.7
	weightStructured = 0.2
	weightGraph      = 0.1
	scoreCutoff      = 0.35

	synthesisCacheTTL = 300 * time.Second
)

// PersonaWeights blends four normalized signals into a multiplier applied to
// final_score (spec §4.4 "Persona weighting").
type PersonaWeights struct {
	Semantic   float64
	Temporal   float64
	Importance float64
	Emotional  float64
}

// DefaultPersona is applied when no persona is supplied or detected.
var DefaultPersona = PersonaWeights{Semantic: 0.4, Temporal: 0.2, Importance: 0.3, Emotional: 0.1}

var financeKeywords = []string{"stock", "shares", "portfolio", "ticker", "invest", "dividend", "holdings", "market"}

var tickerToken = regexp.MustCompile(`\b[A-Z]{1,5}\b`)

// Filters narrows a retrieval call to a layer/type/tag/time window.
type Filters struct {
	Layer string
	Type  string
	Tags  []string
	Since *time.Time
	Until *time.Time
}

// Options controls optional retrieval behavior.
type Options struct {
	Persona         *PersonaWeights
	PersonaDetected float64 // confidence of auto-detected persona, used when Persona is nil
	Synthesize      bool
	AnchorMemoryID  string // seed for graph-proximity scoring, if a graph adapter is configured
	SortOldest      bool
}

// Result is one scored, ranked memory.
type Result struct {
	ID               string
	Document         string
	Metadata         map[string]interface{}
	SemanticScore    float64
	StructuredMatch  float64
	GraphProximity   float64
	FinalScore       float64
}

// Diagnostics reports which branches were skipped and why (spec §4.4
// "Partial-result diagnostics").
type Diagnostics struct {
	Degraded []string
	Reasons  map[string]string
}

// Results is the full response envelope.
type Results struct {
	Memories    []Result
	Total       int
	Diagnostics Diagnostics
	Finance     *FinanceProjection
	Synthesis   *SynthesisResponse
}

// FinanceProjection is attached when the query is finance-flagged.
type FinanceProjection struct {
	Holdings []portfolio.Holding
}

// SynthesisResponse is the grounded, cited synthesis answer.
type SynthesisResponse struct {
	Text     string
	CitedIDs []string
	Cached   bool
}

// Engine fans a retrieval request across the configured adapters. The LLM
// and embedding collaborators are taken as the narrow llmclient interfaces
// (spec §4.9 keeps the core decoupled from a concrete provider).
type Engine struct {
	vector     storage.VectorAdapter
	relational storage.RelationalAdapter
	graph      storage.GraphAdapter
	cache      storage.CacheAdapter
	embedder   llmclient.Embedder
	synth      llmclient.Synthesizer
	log        *logging.Logger
}

func New(vectorAdapter storage.VectorAdapter, relational storage.RelationalAdapter, graph storage.GraphAdapter, cache storage.CacheAdapter, embedder llmclient.Embedder, synth llmclient.Synthesizer, log *logging.Logger) *Engine {
	return &Engine{vector: vectorAdapter, relational: relational, graph: graph, cache: cache, embedder: embedder, synth: synth, log: log}
}

// Retrieve implements the contract in spec §4.4.
func (e *Engine) Retrieve(ctx context.Context, userID, query string, filters Filters, limit, offset int, opts Options) (Results, error) {
	start := time.Now()
	diag := Diagnostics{Reasons: map[string]string{}}

	vf := storage.VectorFilter{UserID: userID, Layer: filters.Layer, Type: filters.Type, Tags: filters.Tags, Since: filters.Since, Until: filters.Until}

	var candidates []storage.VectorMatch
	var total int
	var err error

	if strings.TrimSpace(query) == "" {
		candidates, total, err = e.vector.Scan(ctx, vf, offset, limit)
		if err != nil {
			return Results{}, errors.StorageFailure("vector", err)
		}
	} else {
		queryEmbedding, embedErr := e.embedder.Embed(ctx, query)
		if embedErr != nil {
			return Results{}, errors.EmbeddingUnavailable(embedErr)
		}
		// Over-fetch so the cutoff/offset/limit pipeline has enough to work
		// with; the vector adapter itself has no notion of a score cutoff.
		fetchK := offset + limit
		if fetchK < 50 {
			fetchK = 50
		}
		candidates, err = e.vector.Query(ctx, queryEmbedding, vf, fetchK)
		if err != nil {
			return Results{}, errors.StorageFailure("vector", err)
		}
		total = len(candidates)
	}

	neighbors := map[string]int{}
	if opts.AnchorMemoryID != "" {
		if e.graph == nil {
			diag.Degraded = append(diag.Degraded, "graph")
			diag.Reasons["graph"] = "no graph adapter configured"
		} else {
			neighbors, err = e.graph.Neighbors(ctx, opts.AnchorMemoryID, 2)
			if err != nil {
				diag.Degraded = append(diag.Degraded, "graph")
				diag.Reasons["graph"] = "graph adapter unavailable"
				neighbors = map[string]int{}
			}
		}
	}

	// Persona weighting is optional (spec §4.4): it only applies when the
	// caller supplies a persona outright, or one was auto-detected with
	// confidence >= 0.8. Otherwise the base formula's score stands unscaled.
	var persona *PersonaWeights
	if opts.Persona != nil {
		persona = opts.Persona
	} else if opts.PersonaDetected >= 0.8 {
		detected := DefaultPersona
		persona = &detected
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		structured := structuredMatch(c, filters)
		graphProximity := graphProximityFor(c.ID, neighbors)
		final := weightSemantic*c.Score + weightStructured*structured + weightGraph*graphProximity

		if persona != nil {
			multiplier := persona.Semantic*c.Score + persona.Temporal*recencySignal(c) +
				persona.Importance*importanceSignal(c) + persona.Emotional*emotionalSignal(c)
			if multiplier > 0 {
				final *= multiplier
			}
		}

		if strings.TrimSpace(query) != "" && final < scoreCutoff {
			continue
		}
		results = append(results, Result{
			ID: c.ID, Document: c.Document, Metadata: c.Metadata,
			SemanticScore: c.Score, StructuredMatch: structured, GraphProximity: graphProximity,
			FinalScore: final,
		})
	}

	if strings.TrimSpace(query) != "" {
		sort.SliceStable(results, func(i, j int) bool { return results[i].FinalScore > results[j].FinalScore })
		total = len(results)
		end := offset + limit
		if offset > len(results) {
			offset = len(results)
		}
		if limit <= 0 || end > len(results) {
			end = len(results)
		}
		results = results[offset:end]
	} else if opts.SortOldest {
		sort.SliceStable(results, func(i, j int) bool { return timestampOf(results[i]).Before(timestampOf(results[j])) })
	} else {
		sort.SliceStable(results, func(i, j int) bool { return timestampOf(results[i]).After(timestampOf(results[j])) })
	}

	out := Results{Memories: results, Total: total, Diagnostics: diag}

	if isFinanceFlagged(query, filters) && e.relational != nil {
		holdings, hErr := e.relational.ListHoldings(ctx, userID)
		if hErr != nil {
			diag.Degraded = append(diag.Degraded, "finance")
			diag.Reasons["finance"] = "relational adapter unavailable"
		} else {
			out.Finance = &FinanceProjection{Holdings: holdings}
		}
	}

	if opts.Synthesize {
		synthRes, synthErr := e.synthesize(ctx, userID, query, results)
		if synthErr != nil {
			diag.Degraded = append(diag.Degraded, "synthesis")
			diag.Reasons["synthesis"] = synthErr.Error()
		} else {
			out.Synthesis = synthRes
		}
	}

	out.Diagnostics = diag
	if e.log != nil {
		e.log.LogRetrieval(ctx, userID, len(results), diag.Degraded, time.Since(start))
	}
	return out, nil
}

func (e *Engine) synthesize(ctx context.Context, userID, query string, results []Result) (*SynthesisResponse, error) {
	ids := make([]string, len(results))
	texts := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
		texts[i] = r.Document
	}
	cacheKey := SynthesisCacheKey(userID, query, ids)

	if e.cache != nil {
		if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
			return &SynthesisResponse{Text: cached, CitedIDs: ids, Cached: true}, nil
		}
	}

	res, err := e.synth.Synthesize(ctx, query, ids, texts)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		_ = e.cache.SetEx(ctx, cacheKey, res.Text, synthesisCacheTTL)
	}
	return &SynthesisResponse{Text: res.Text, CitedIDs: res.CitedIDs}, nil
}

// SynthesisCacheKey derives the cache key named in spec §4.4:
// synth:{user_id}:{sha256(query+ids)}.
func SynthesisCacheKey(userID, query string, ids []string) string {
	sum := sha256.Sum256([]byte(query + strings.Join(ids, ",")))
	return fmt.Sprintf("synth:%s:%s", userID, hex.EncodeToString(sum[:]))
}

func structuredMatch(c storage.VectorMatch, f Filters) float64 {
	if f.Layer != "" {
		if v, _ := c.Metadata["layer"].(string); v != f.Layer {
			return 0
		}
	}
	if f.Type != "" {
		if v, _ := c.Metadata["type"].(string); v != f.Type {
			return 0
		}
	}
	if len(f.Tags) > 0 {
		tagSet := map[string]bool{}
		if raw, ok := c.Metadata["tags"].([]string); ok {
			for _, t := range raw {
				tagSet[t] = true
			}
		}
		for _, want := range f.Tags {
			if !tagSet[want] {
				return 0
			}
		}
	}
	ts := timestampOfMatch(c)
	if f.Since != nil && ts.Before(*f.Since) {
		return 0
	}
	if f.Until != nil && ts.After(*f.Until) {
		return 0
	}
	return 1
}

func graphProximityFor(id string, neighbors map[string]int) float64 {
	hop, ok := neighbors[id]
	if !ok {
		return 0
	}
	switch hop {
	case 1:
		return 1
	case 2:
		return 0.5
	default:
		return 0
	}
}

func recencySignal(c storage.VectorMatch) float64 {
	ts := timestampOfMatch(c)
	if ts.IsZero() {
		return 0
	}
	age := time.Since(ts)
	halfLife := 7 * 24 * time.Hour
	return clamp01(1 / (1 + age.Hours()/halfLife.Hours()))
}

func importanceSignal(c storage.VectorMatch) float64 {
	if v, ok := c.Metadata["importance"].(float64); ok {
		return clamp01(v)
	}
	return 0
}

func emotionalSignal(c storage.VectorMatch) float64 {
	if v, ok := c.Metadata["emotional_arousal"].(float64); ok {
		return clamp01(v)
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func timestampOfMatch(c storage.VectorMatch) time.Time {
	if v, ok := c.Metadata["created_at"].(time.Time); ok {
		return v
	}
	return time.Time{}
}

func timestampOf(r Result) time.Time {
	if v, ok := r.Metadata["created_at"].(time.Time); ok {
		return v
	}
	return time.Time{}
}

// isFinanceFlagged applies the heuristic named in spec §4.4: a recognized
// ticker token or a finance keyword in the query, or an explicit layer/type
// filter targeting portfolio data.
func isFinanceFlagged(query string, f Filters) bool {
	if f.Layer == "portfolio" || f.Type == "portfolio" {
		return true
	}
	upperTokens := tickerToken.FindAllString(query, -1)
	for _, tok := range upperTokens {
		if portfolio.ValidTicker(tok) {
			return true
		}
	}
	lower := strings.ToLower(query)
	for _, kw := range financeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
