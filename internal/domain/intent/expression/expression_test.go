package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePrice(t *testing.T) {
	assert.NoError(t, ValidatePrice("NVDA < 130"))
	assert.NoError(t, ValidatePrice("AAPL >= 150.5"))
	assert.Error(t, ValidatePrice("NVDA below 130"))
	assert.Error(t, ValidatePrice("nvda < 130"))
}

func TestValidatePortfolio(t *testing.T) {
	assert.NoError(t, ValidatePortfolio("total_value"))
	assert.NoError(t, ValidatePortfolio("any_holding_down"))
	assert.Error(t, ValidatePortfolio("nonsense_aggregate"))
}

func TestValidateSilence(t *testing.T) {
	assert.NoError(t, ValidateSilence("inactive_hours > 48"))
	assert.Error(t, ValidateSilence("inactive_hours < 48"))
	assert.Error(t, ValidateSilence("quiet for a while"))
}

func TestValidate_Dispatch(t *testing.T) {
	assert.NoError(t, Validate("price", "NVDA < 130"))
	assert.Error(t, Validate("unknown_type", "whatever"))
}

func TestIsValidIANATimezone(t *testing.T) {
	assert.True(t, IsValidIANATimezone("America/Los_Angeles"))
	assert.True(t, IsValidIANATimezone("UTC"))
	assert.False(t, IsValidIANATimezone(""))
	assert.False(t, IsValidIANATimezone("PST"))
}
