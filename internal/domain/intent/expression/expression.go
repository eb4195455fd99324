// Package expression validates the trigger-condition grammars named in
// spec.md §4.7. It never evaluates an expression against live data — that is
// the proactive worker's job (spec.md §1 Non-goals) — it only rejects
// syntactically invalid input at intent-creation time.
package expression

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	priceExprPattern     = regexp.MustCompile(`^([A-Z]{1,5})\s*(<=|>=|<|>|=)\s*(-?\d+(?:\.\d+)?)$`)
	silenceExprPattern   = regexp.MustCompile(`^inactive_hours\s*>\s*(\d+)$`)
	recognizedPortfolios = map[string]bool{
		"any_holding_change": true,
		"any_holding_down":   true,
		"any_holding_up":     true,
		"total_value":        true,
		"total_change":       true,
	}
)

// ValidatePrice checks the `TICKER (< | > | <= | >= | =) VALUE` grammar.
func ValidatePrice(expr string) error {
	if !priceExprPattern.MatchString(strings.TrimSpace(expr)) {
		return fmt.Errorf("price expression must match 'TICKER (< | > | <= | >= | =) VALUE', got %q", expr)
	}
	return nil
}

// ValidatePortfolio checks that expr references a recognized aggregate.
func ValidatePortfolio(expr string) error {
	trimmed := strings.TrimSpace(expr)
	if !recognizedPortfolios[trimmed] {
		return fmt.Errorf("portfolio expression must reference a recognized aggregate (any_holding_change, any_holding_down, any_holding_up, total_value, total_change), got %q", expr)
	}
	return nil
}

// ValidateSilence checks the `inactive_hours > N` grammar.
func ValidateSilence(expr string) error {
	if !silenceExprPattern.MatchString(strings.TrimSpace(expr)) {
		return fmt.Errorf("silence expression must match 'inactive_hours > N', got %q", expr)
	}
	return nil
}

// Validate dispatches to the grammar matching conditionType (mirrors
// intent.TriggerType for condition-bearing intents).
func Validate(conditionType, expr string) error {
	switch conditionType {
	case "price":
		return ValidatePrice(expr)
	case "portfolio":
		return ValidatePortfolio(expr)
	case "silence":
		return ValidateSilence(expr)
	default:
		return fmt.Errorf("unsupported condition type %q", conditionType)
	}
}

// IsValidIANATimezone is a conservative check: it rejects empty strings and
// strings that can't possibly be IANA names (no '/' and not a handful of
// zero-offset aliases), deferring the authoritative check to time.LoadLocation
// at the call site since that requires the tzdata database.
func IsValidIANATimezone(tz string) bool {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return false
	}
	if tz == "UTC" || tz == "Local" {
		return true
	}
	return strings.Contains(tz, "/")
}
