package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Rules
// ==========================

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"john.doe@example.com", true},
		{"JOHN@EXAMPLE.ORG", true},
		{"a@b.co", true},
		{"john@example", false},
		{"jo hn@example.com", false},
		{"@example.com", false},
		{"john@@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ok, msg := IsValidEmail(tt.input)
			assert.Equal(t, tt.want, ok)
			if !tt.want {
				assert.Equal(t, "Invalid email format", msg)
			} else {
				assert.Empty(t, msg)
			}
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"+1 (555) 123-4567", true},
		{"555.123.4567", true},
		{"+442071838750", true},
		{"5551234", true},
		{"12345", false},
		{"abc", false},
		{"+", false},
		{"1+5551234567", false},
		{"+12345678901234567890", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ok, _ := IsValidPhone(tt.input)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestIsValidUSPhone(t *testing.T) {
	ok, _ := IsValidUSPhone("(555) 123-4567")
	assert.True(t, ok)

	ok, msg := IsValidUSPhone("+1 555 123 4567")
	assert.False(t, ok)
	assert.Equal(t, "Please enter a valid 10-digit phone number", msg)
}

func TestIsValidSSN(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"123-45-6789", true},
		{"123456789", true},
		{"123 45 6789", true},
		{"123-45-678", false},
		{"12-345-6789", true},
		{"", false},
		{"abc-de-fghi", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ok, _ := IsValidSSN(tt.input)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestIsValidFundingAmount_Boundaries(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"74999", false},
		{"74999.99", false},
		{"75000", true},
		{"75000.00", true},
		{"$250,000", true},
		{"750000", true},
		{"750000.01", false},
		{"750001", false},
		{"abc", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ok, msg := IsValidFundingAmount(tt.input)
			assert.Equal(t, tt.want, ok)
			if !ok {
				assert.NotEmpty(t, msg)
			}
		})
	}

	_, msg := IsValidFundingAmount("1")
	assert.Equal(t, "Funding amount must be between $75,000 and $750,000", msg)
}

func TestFundingRange_Custom(t *testing.T) {
	r := FundingRange{Min: 1000, Max: 2500.5}

	ok, _ := r.Check("2500.5")
	assert.True(t, ok)

	ok, msg := r.Check("999")
	assert.False(t, ok)
	assert.Equal(t, "Funding amount must be between $1,000 and $2,500.5", msg)
}

func TestIsStrongPassword(t *testing.T) {
	tests := []struct {
		input string
		want  bool
		msg   string
	}{
		{"Secret123", true, ""},
		{"Sh0rt", false, "Password must be at least 8 characters long"},
		{"alllower123", false, "Password must contain at least one uppercase letter"},
		{"ALLUPPER123", false, "Password must contain at least one lowercase letter"},
		{"NoDigitsHere", false, "Password must contain at least one number"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ok, msg := IsStrongPassword(tt.input)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.msg, msg)
		})
	}
}

func TestIsValidZipAndState(t *testing.T) {
	ok, _ := IsValidZip("90210")
	assert.True(t, ok)
	ok, _ = IsValidZip("9021")
	assert.False(t, ok)
	ok, _ = IsValidZip("90210-1234")
	assert.False(t, ok)

	assert.Len(t, USStates, 50)
	ok, _ = IsValidState("New York")
	assert.True(t, ok)
	ok, _ = IsValidState("new york")
	assert.False(t, ok)
	ok, _ = IsValidState("Puerto Rico")
	assert.False(t, ok)
}

func TestIsValidDate(t *testing.T) {
	ok, _ := IsValidDate("1990-04-12")
	assert.True(t, ok)

	ok, msg := IsValidDate("12/04/1990")
	assert.False(t, ok)
	assert.Equal(t, "Date must be in YYYY-MM-DD format", msg)

	ok, msg = IsValidDate(time.Now().AddDate(1, 0, 0).Format(DateLayout))
	assert.False(t, ok)
	assert.Equal(t, "Date cannot be in the future", msg)
}

func TestIsOneOf(t *testing.T) {
	ok, _ := IsOneOf("Low", []string{"Low", "Medium", "High"})
	assert.True(t, ok)

	ok, msg := IsOneOf("Huge", []string{"Low", "Medium", "High"})
	assert.False(t, ok)
	assert.Contains(t, msg, "Huge")

	ok, _ = IsOneOf("anything", nil)
	assert.True(t, ok)
}

func TestMinLengthAndBlank(t *testing.T) {
	assert.True(t, MinLength("Al", 2))
	assert.False(t, MinLength(" A ", 2))
	assert.True(t, IsBlank("   "))
	assert.False(t, IsBlank(" x "))
}

// ==========================
// Normalizers
// ==========================

func TestFormatSSN_Progressive(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"1", "1"},
		{"123", "123"},
		{"1234", "123-4"},
		{"12345", "123-45"},
		{"123456", "123-45-6"},
		{"123456789", "123-45-6789"},
		{"1234567890123", "123-45-6789"},
		{"123-45-67ab89", "123-45-6789"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSSN(tt.input))
		})
	}
}

func TestFormatSSN_Idempotent(t *testing.T) {
	for _, in := range []string{"123456789", "12345", "1234567", "987-65-4321"} {
		once := FormatSSN(in)
		assert.Equal(t, once, FormatSSN(once), in)
	}
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"abc", ""},
		{"", ""},
		{".", ""},
		{"75000", "75000"},
		{"$75,000", "75000"},
		{"-500", "500"},
		{"1234.567", "1234.57"},
		{"1.2.3", "1.2"},
		{"100.", "100"},
		{".5", "0.5"},
		{"00075000", "75000"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAmount(tt.input))
		})
	}
}

func TestDigitsOnlyAndNormalizePhone(t *testing.T) {
	assert.Equal(t, "5551234567", DigitsOnly("(555) 123-4567"))
	assert.Equal(t, "+15551234567", NormalizePhone("+1 (555) 123-4567"))
}

// ==========================
// Schema
// ==========================

func TestSchema_Validate(t *testing.T) {
	schema, err := CompileSchema(map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"gender"},
		"properties": map[string]interface{}{
			"gender": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
	})
	require.NoError(t, err)

	result, err := schema.Validate(map[string]interface{}{"gender": []interface{}{"Male", "Female"}})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)

	result, err = schema.Validate(map[string]interface{}{"gender": "Male"})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "gender", result.Errors[0].Field)
	assert.Equal(t, "invalid_type", result.Errors[0].Code)

	result, err = schema.Validate(map[string]interface{}{})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "required", result.Errors[0].Code)
}

func TestCompileSchema_Invalid(t *testing.T) {
	_, err := CompileSchema(`{"type": 12}`)
	assert.Error(t, err)
}
