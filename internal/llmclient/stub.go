package llmclient

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// Stub is a deterministic, in-process implementation of Extractor, Worthiness,
// Synthesizer and Embedder, backing tests and local runs without a vendor
// SDK dependency. A real provider wires the same interfaces.
type Stub struct {
	EmbeddingDim int
}

// NewStub constructs a Stub with the given embedding dimension (canonical
// 3072 per spec.md §6.2, smaller in tests).
func NewStub(embeddingDim int) *Stub {
	if embeddingDim <= 0 {
		embeddingDim = 3072
	}
	return &Stub{EmbeddingDim: embeddingDim}
}

var _ Extractor = (*Stub)(nil)
var _ Worthiness = (*Stub)(nil)
var _ Synthesizer = (*Stub)(nil)
var _ Embedder = (*Stub)(nil)

var trivialPhrases = []string{"ok", "okay", "thanks", "thank you", "k", "sure", "yep", "yes", "no"}

// Judge applies the heuristic pre-filter from spec.md §4.3 stage 1: length
// and stop-phrase matching. It never falls through to a "real" LLM call —
// the stub is meant to be decisive on its own.
func (s *Stub) Judge(_ context.Context, history []Turn) (WorthinessVerdict, error) {
	if len(history) == 0 {
		return WorthinessVerdict{Worthy: false, Reason: "empty_history"}, nil
	}

	allTrivial := true
	for _, t := range history {
		if t.Role != "user" {
			continue
		}
		trimmed := strings.TrimSpace(strings.ToLower(t.Content))
		tokenCount := len(strings.Fields(trimmed))
		isStopPhrase := false
		for _, p := range trivialPhrases {
			if trimmed == p {
				isStopPhrase = true
				break
			}
		}
		if tokenCount > 3 && !isStopPhrase {
			allTrivial = false
			break
		}
	}

	if allTrivial {
		return WorthinessVerdict{Worthy: false, Reason: "all_user_turns_trivial"}, nil
	}
	return WorthinessVerdict{Worthy: true, Reason: "heuristic_pass"}, nil
}

// Extract produces one candidate memory per non-trivial user turn. Turns may
// carry an inline JSON hint (e.g. `{"ticker":"AAPL","layer":"episodic"}`)
// which is pulled out with gjson path lookups the same tolerant way the
// price-feed collaborator reads a value out of an arbitrary response body —
// missing paths are simply absent, never an error.
func (s *Stub) Extract(_ context.Context, history []Turn, digest []DigestEntry) ([]CandidateMemory, error) {
	seen := make(map[string]bool, len(digest))
	for _, d := range digest {
		seen[normalize(d.Content)] = true
	}

	var out []CandidateMemory
	for _, t := range history {
		if t.Role != "user" {
			continue
		}
		content := strings.TrimSpace(t.Content)
		if content == "" || seen[normalize(content)] {
			continue
		}
		if len(strings.Fields(content)) <= 3 {
			continue
		}

		cand := CandidateMemory{
			Content:    content,
			Layer:      "short-term",
			Type:       "implicit",
			Importance: 0.5,
			Confidence: 0.6,
		}

		if layer := gjson.Get(content, "layer"); layer.Exists() {
			cand.Layer = layer.String()
		}
		if typ := gjson.Get(content, "type"); typ.Exists() {
			cand.Type = typ.String()
		}
		if ticker := gjson.Get(content, "ticker"); ticker.Exists() {
			cand.TypedFields = map[string]interface{}{"ticker": ticker.String()}
		}

		out = append(out, cand)
	}
	return out, nil
}

// Synthesize builds a deterministic grounded summary citing every id passed
// in, never inventing content beyond the grounding text.
func (s *Stub) Synthesize(_ context.Context, prompt string, groundingIDs []string, groundingText []string) (SynthesisResult, error) {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString(": ")
	for i, text := range groundingText {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(text)
	}
	return SynthesisResult{Text: b.String(), CitedIDs: groundingIDs}, nil
}

// Embed derives a deterministic unit vector from a SHA-256 hash of text, so
// identical content always embeds identically and cosine math in
// internal/storage/vector is exercised without calling an external model.
func (s *Stub) Embed(_ context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, s.EmbeddingDim)
	var normSq float64
	for i := range vec {
		byteIdx := i % len(sum)
		seed := binary.BigEndian.Uint32(rotate(sum[:], byteIdx))
		v := float32(int32(seed)%1000) / 1000.0
		vec[i] = v
		normSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(normSq)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

func rotate(b []byte, offset int) []byte {
	out := make([]byte, 4)
	for i := 0; i < 4; i++ {
		out[i] = b[(offset+i)%len(b)]
	}
	return out
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
