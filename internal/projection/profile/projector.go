// Package profile implements the profile projector (spec.md §4.5): a
// per-user view across eight fixed categories, populated by enrichment and
// overwritable by explicit user PUTs, with a confidence blend and a
// populated/total completeness percentage.
package profile

import (
	"context"
	"time"

	domainprofile "github.com/ankitaa186/agentic-memories-sub004/internal/domain/profile"
	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
)

// Snapshot is the full profile view returned to callers.
type Snapshot struct {
	UserID       string
	Fields       []Field
	Completeness float64
}

// Projector maintains per-user profile fields over a Store.
type Projector struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Projector {
	return &Projector{store: store, now: time.Now}
}

// WithClock overrides the projector's clock (test hook).
func (p *Projector) WithClock(now func() time.Time) *Projector {
	p.now = now
	return p
}

// ApplyEnrichment records (or updates) a profile field populated from
// extraction-stage enrichment, blending confidence from the four signals
// named in spec §4.5.
func (p *Projector) ApplyEnrichment(ctx context.Context, userID string, category Category, name, value string, sourceID string, frequency, recency, diversity float64) (Field, error) {
	if !domainprofile.ValidCategory(category) {
		return Field{}, apperrors.InvalidField("category", "not one of the eight recognized profile categories")
	}

	existing, ok, err := p.store.GetField(ctx, userID, category, name)
	if err != nil {
		return Field{}, apperrors.StorageFailure("profile", err)
	}
	if ok && existing.Explicit {
		// An explicit user PUT is authoritative until the user overwrites it
		// again; enrichment never silently downgrades it.
		return existing, nil
	}

	sourceIDs := []string{sourceID}
	if ok {
		sourceIDs = appendUnique(existing.SourceIDs, sourceID)
	}

	f := Field{
		UserID: userID, Category: category, Name: name, Value: value,
		Confidence: domainprofile.BlendConfidence(frequency, recency, explicitnessImplicit, diversity),
		Explicit:   false,
		UpdatedAt:  p.now(),
		SourceIDs:  sourceIDs,
	}
	if err := p.store.UpsertField(ctx, f); err != nil {
		return Field{}, apperrors.StorageFailure("profile", err)
	}
	return f, nil
}

// Overwrite implements the explicit user PUT path: full confidence, marked
// explicit, and never subsequently downgraded by enrichment.
func (p *Projector) Overwrite(ctx context.Context, userID string, category Category, name, value string) (Field, error) {
	if !domainprofile.ValidCategory(category) {
		return Field{}, apperrors.InvalidField("category", "not one of the eight recognized profile categories")
	}
	f := Field{
		UserID: userID, Category: category, Name: name, Value: value,
		Confidence: 1.0, Explicit: true, UpdatedAt: p.now(),
	}
	if err := p.store.UpsertField(ctx, f); err != nil {
		return Field{}, apperrors.StorageFailure("profile", err)
	}
	return f, nil
}

// Profile returns the full per-user snapshot with completeness computed as
// populated categories / total categories (spec §4.5).
func (p *Projector) Profile(ctx context.Context, userID string) (Snapshot, error) {
	fields, err := p.store.ListFields(ctx, userID)
	if err != nil {
		return Snapshot{}, apperrors.StorageFailure("profile", err)
	}

	populatedCategories := make(map[Category]bool)
	for _, f := range fields {
		populatedCategories[f.Category] = true
	}

	return Snapshot{
		UserID:       userID,
		Fields:       fields,
		Completeness: domainprofile.Completeness(len(populatedCategories), len(domainprofile.AllCategories)),
	}, nil
}

// explicitnessImplicit is the explicitness signal fed to BlendConfidence for
// fields populated by implicit enrichment (as opposed to an explicit user
// PUT, which always scores confidence 1.0 directly).
const explicitnessImplicit = 0.0

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
