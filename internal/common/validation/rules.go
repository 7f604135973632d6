// internal/common/validation/rules.go
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Funding limits accepted by the grant program, inclusive.
const (
	MinFundingAmount = 75000
	MaxFundingAmount = 750000
)

// DateLayout is the wire format for dateOfBirth.
const DateLayout = "2006-01-02"

var (
	emailRegex      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneStripRegex = regexp.MustCompile(`[^\d+]`)
	phoneRegex      = regexp.MustCompile(`^\+?\d{1,4}\d{6,15}$`)
	ssnRegex        = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	zipRegex        = regexp.MustCompile(`^\d{5}$`)
)

// USStates lists the accepted values for the state field.
var USStates = []string{
	"Alabama", "Alaska", "Arizona", "Arkansas", "California", "Colorado",
	"Connecticut", "Delaware", "Florida", "Georgia", "Hawaii", "Idaho",
	"Illinois", "Indiana", "Iowa", "Kansas", "Kentucky", "Louisiana",
	"Maine", "Maryland", "Massachusetts", "Michigan", "Minnesota",
	"Mississippi", "Missouri", "Montana", "Nebraska", "Nevada",
	"New Hampshire", "New Jersey", "New Mexico", "New York",
	"North Carolina", "North Dakota", "Ohio", "Oklahoma", "Oregon",
	"Pennsylvania", "Rhode Island", "South Carolina", "South Dakota",
	"Tennessee", "Texas", "Utah", "Vermont", "Virginia", "Washington",
	"West Virginia", "Wisconsin", "Wyoming",
}

var usStateSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(USStates))
	for _, s := range USStates {
		m[s] = struct{}{}
	}
	return m
}()

// ==========================
// Rules
// ==========================
//
// Every rule returns ok plus the message to show next to the field when
// ok is false. Rules check format only; emptiness is the caller's concern.

func IsValidEmail(value string) (bool, string) {
	if emailRegex.MatchString(strings.ToLower(value)) {
		return true, ""
	}
	return false, "Invalid email format"
}

// IsValidPhone accepts an optional leading +, a 1-4 digit country code and
// 6-15 subscriber digits once separators are removed.
func IsValidPhone(value string) (bool, string) {
	if phoneRegex.MatchString(NormalizePhone(value)) {
		return true, ""
	}
	return false, "Invalid phone number"
}

// IsValidUSPhone is the registration flow's 10 digit check.
func IsValidUSPhone(value string) (bool, string) {
	if len(DigitsOnly(value)) == 10 {
		return true, ""
	}
	return false, "Please enter a valid 10-digit phone number"
}

func IsValidSSN(value string) (bool, string) {
	if ssnRegex.MatchString(FormatSSN(value)) {
		return true, ""
	}
	return false, "Invalid SSN format (###-##-####)"
}

// IsValidFundingAmount checks the default program limits.
func IsValidFundingAmount(value string) (bool, string) {
	return DefaultFundingRange.Check(value)
}

// FundingRange is an inclusive amount window.
type FundingRange struct {
	Min float64
	Max float64
}

// DefaultFundingRange is the program's standard window.
var DefaultFundingRange = FundingRange{Min: MinFundingAmount, Max: MaxFundingAmount}

func (r FundingRange) Message() string {
	return fmt.Sprintf("Funding amount must be between $%s and $%s", groupThousands(r.Min), groupThousands(r.Max))
}

// Check parses value (tolerating $ and , separators) and tests it against the window.
func (r FundingRange) Check(value string) (bool, string) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(value)
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return false, "Funding amount must be a number"
	}
	if amount < r.Min || amount > r.Max {
		return false, r.Message()
	}
	return true, ""
}

// IsStrongPassword requires at least 8 characters with an upper case
// letter, a lower case letter and a digit.
func IsStrongPassword(value string) (bool, string) {
	if len(value) < 8 {
		return false, "Password must be at least 8 characters long"
	}
	var upper, lower, digit bool
	for _, r := range value {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return false, "Password must contain at least one uppercase letter"
	case !lower:
		return false, "Password must contain at least one lowercase letter"
	case !digit:
		return false, "Password must contain at least one number"
	}
	return true, ""
}

func IsValidZip(value string) (bool, string) {
	if zipRegex.MatchString(strings.TrimSpace(value)) {
		return true, ""
	}
	return false, "ZIP code must be 5 digits"
}

func IsValidState(value string) (bool, string) {
	if _, ok := usStateSet[value]; ok {
		return true, ""
	}
	return false, "Please select a valid US state"
}

// IsValidDate accepts YYYY-MM-DD dates that are not in the future.
func IsValidDate(value string) (bool, string) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return false, "Date must be in YYYY-MM-DD format"
	}
	if d.After(time.Now()) {
		return false, "Date cannot be in the future"
	}
	return true, ""
}

// IsOneOf reports whether value is in allowed. An empty allowed list
// accepts anything.
func IsOneOf(value string, allowed []string) (bool, string) {
	if len(allowed) == 0 {
		return true, ""
	}
	for _, a := range allowed {
		if a == value {
			return true, ""
		}
	}
	return false, fmt.Sprintf("%q is not an accepted value", value)
}

// MinLength checks the trimmed length of value.
func MinLength(value string, n int) bool {
	return len([]rune(strings.TrimSpace(value))) >= n
}

// IsBlank reports whether value is empty once whitespace is trimmed.
func IsBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// ==========================
// Normalizers
// ==========================

// DigitsOnly strips everything but 0-9.
func DigitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone strips everything but digits and +.
func NormalizePhone(value string) string {
	return phoneStripRegex.ReplaceAllString(value, "")
}

// FormatSSN masks input progressively as ###-##-####, keeping at most 9 digits.
func FormatSSN(value string) string {
	d := DigitsOnly(value)
	if len(d) > 9 {
		d = d[:9]
	}
	switch {
	case len(d) > 5:
		return d[:3] + "-" + d[3:5] + "-" + d[5:]
	case len(d) > 3:
		return d[:3] + "-" + d[3:]
	default:
		return d
	}
}

// NormalizeAmount keeps digits and the first decimal point, rounds to
// cents and returns the decimal string. Input with no number in it yields "".
func NormalizeAmount(value string) string {
	var b strings.Builder
	seenDot := false
scan:
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			if seenDot {
				// a second point ends the number
				break scan
			}
			seenDot = true
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "." {
		return ""
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ""
	}
	amount = math.Max(0, math.Round(amount*100)/100)
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func groupThousands(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var out []byte
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, intPart[i])
	}
	return string(out) + frac
}
