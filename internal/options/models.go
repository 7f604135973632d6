// Package options holds the enumerated choices offered by the application
// form (gender, funding type, timeframe and so on) and loads them from the
// backend, a YAML file or the built-in defaults.
package options

import "sort"

// Categories, keyed by the form field they constrain.
const (
	CategoryGender            = "gender"
	CategoryEthnicity         = "ethnicity"
	CategoryEmploymentStatus  = "employmentStatus"
	CategoryIncomeLevel       = "incomeLevel"
	CategoryEducationLevel    = "educationLevel"
	CategoryCitizenshipStatus = "citizenshipStatus"
	CategoryFundingType       = "fundingType"
	CategoryTimeframe         = "timeframe"
)

// Categories lists every known category in form order.
var Categories = []string{
	CategoryFundingType,
	CategoryTimeframe,
	CategoryGender,
	CategoryEthnicity,
	CategoryEmploymentStatus,
	CategoryIncomeLevel,
	CategoryEducationLevel,
	CategoryCitizenshipStatus,
}

// Source names where a Set came from.
type Source string

const (
	SourceDefaults Source = "defaults"
	SourceFile     Source = "file"
	SourceCache    Source = "cache"
	SourceServer   Source = "server"
)

// Set maps a category to its allowed values. A category with no values
// places no constraint on the field.
type Set map[string][]string

// Values returns the allowed values for category.
func (s Set) Values(category string) []string {
	if s == nil {
		return nil
	}
	return s[category]
}

// Contains reports whether value is allowed for category.
func (s Set) Contains(category, value string) bool {
	for _, v := range s.Values(category) {
		if v == value {
			return true
		}
	}
	return false
}

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Merge returns a copy of s with every non-empty category of other applied over it.
func (s Set) Merge(other Set) Set {
	out := s.Clone()
	for k, v := range other {
		if len(v) > 0 {
			out[k] = append([]string(nil), v...)
		}
	}
	return out
}

// UnknownCategories returns the categories in s that the form does not use, sorted.
func (s Set) UnknownCategories() []string {
	known := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		known[c] = struct{}{}
	}
	var out []string
	for k := range s {
		if _, ok := known[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Defaults returns the values the form has always offered.
func Defaults() Set {
	return Set{
		CategoryGender:            {"Male", "Female", "Other", "PreferNotToSay"},
		CategoryEthnicity:         {"White", "Black", "Hispanic", "Asian", "NativeAmerican", "PacificIslander", "Mixed", "PreferNotToSay"},
		CategoryEmploymentStatus:  {"FullTime", "PartTime", "SelfEmployed", "Unemployed", "Student", "Retired"},
		CategoryIncomeLevel:       {"Low", "Medium", "High"},
		CategoryEducationLevel:    {"HighSchool", "Associates", "Bachelors", "Masters", "Doctorate"},
		CategoryCitizenshipStatus: {"Citizen", "PermanentResident", "Refugee", "Other"},
		CategoryFundingType: {
			"Personal Grant", "Business Grant", "Community Grant", "Education Grant",
			"Real Estate Grant", "Healthcare Grants", "Agriculture Grant", "Home Repairs Grant",
		},
		CategoryTimeframe: {"1-7Days", "1-2Weeks", "2-4Weeks"},
	}
}
