// Package llmclient declares the LLM and embedding provider as narrow
// interfaces — the service's core never imports a concrete vendor SDK
// (spec.md §1 scope boundary: these are external oracles).
package llmclient

import "context"

// CandidateMemory is one extraction-stage output, before classification.
type CandidateMemory struct {
	Content     string
	Layer       string
	Type        string
	Importance  float64
	Confidence  float64
	Tags        []string
	PersonaTags []string
	TypedFields map[string]interface{}
}

// DigestEntry is one existing-memory summary fed back to the extractor so it
// can suppress near-duplicates (spec.md §4.3 stage 2).
type DigestEntry struct {
	ID      string
	Content string
	Layer   string
}

// Turn is one conversation turn in extraction input history.
type Turn struct {
	Role    string
	Content string
}

// Extractor turns a conversation window plus an existing-memories digest
// into candidate memories (spec.md §4.3 stage 3).
type Extractor interface {
	Extract(ctx context.Context, history []Turn, digest []DigestEntry) ([]CandidateMemory, error)
}

// WorthinessVerdict is the outcome of the worthiness filter.
type WorthinessVerdict struct {
	Worthy bool
	Reason string
}

// Worthiness judges whether a turn window is worth running extraction on
// (spec.md §4.3 stage 1). The extraction pipeline calls it once per run,
// with no heuristic pre-filter of its own in front of it.
type Worthiness interface {
	Judge(ctx context.Context, history []Turn) (WorthinessVerdict, error)
}

// SynthesisResult is a grounded, citation-bearing narrative response.
type SynthesisResult struct {
	Text      string
	CitedIDs  []string
}

// Synthesizer produces a grounded prose answer from retrieved memories
// (spec.md §4.4 synthesis, §4.5 narrative builder).
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string, groundingIDs []string, groundingText []string) (SynthesisResult, error)
}

// Embedder converts text into the vector space the vector adapter indexes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
