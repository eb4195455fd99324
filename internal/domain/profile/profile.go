// Package profile models the per-user profile projection maintained by the
// profile projector (spec §4.5).
package profile

import "time"

// Category is one of the fixed profile buckets.
type Category string

const (
	CategoryBasics      Category = "basics"
	CategoryPreferences Category = "preferences"
	CategoryGoals       Category = "goals"
	CategoryInterests   Category = "interests"
	CategoryBackground  Category = "background"
	CategoryHealth      Category = "health"
	CategoryPersonality Category = "personality"
	CategoryValues      Category = "values"
)

// AllCategories enumerates the fixed category set used for completeness math.
var AllCategories = []Category{
	CategoryBasics, CategoryPreferences, CategoryGoals, CategoryInterests,
	CategoryBackground, CategoryHealth, CategoryPersonality, CategoryValues,
}

// ValidCategory reports whether c is one of the eight recognized categories.
func ValidCategory(c Category) bool {
	for _, known := range AllCategories {
		if known == c {
			return true
		}
	}
	return false
}

// Field is one populated profile attribute, confidence-scored by a weighted
// blend of frequency, recency, explicitness, and source diversity.
type Field struct {
	UserID      string
	Category    Category
	Name        string
	Value       string
	Confidence  float64
	Explicit    bool
	UpdatedAt   time.Time
	SourceIDs   []string // memory ids whose content contributed to this field
}

// Confidence-blend weights (spec §4.5 "Profile projector").
const (
	WeightFrequency   = 0.30
	WeightRecency     = 0.25
	WeightExplicitness = 0.25
	WeightDiversity   = 0.20
)

// BlendConfidence combines the four normalized [0,1] signals into the
// field's confidence score using the fixed weights above.
func BlendConfidence(frequency, recency, explicitness, diversity float64) float64 {
	return WeightFrequency*frequency + WeightRecency*recency +
		WeightExplicitness*explicitness + WeightDiversity*diversity
}

// Completeness returns populated_fields / total_fields * 100.
func Completeness(populated, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(populated) / float64(total) * 100
}
