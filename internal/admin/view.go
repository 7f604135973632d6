package admin

import (
	"sort"
	"strings"
)

// DefaultPageSize is the dashboard's applications per page.
const DefaultPageSize = 10

// Filter narrows a listing the way the dashboard does. Empty fields match
// everything.
type Filter struct {
	Status      Status
	FundingType string
	Search      string
}

// Apply returns the applications matching f, preserving order. Search is
// a case-insensitive substring match over name, email, city and purpose.
func (f Filter) Apply(apps []Application) []Application {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Application, 0, len(apps))
	for _, a := range apps {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.FundingType != "" && a.FundingInfo.FundingType != f.FundingType {
			continue
		}
		if needle != "" && !matches(a, needle) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matches(a Application, needle string) bool {
	for _, hay := range []string{
		a.PersonalInfo.FirstName,
		a.PersonalInfo.LastName,
		a.PersonalInfo.Email,
		a.AddressInfo.City,
		a.FundingInfo.FundingPurpose,
	} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// SortField names a sortable column.
type SortField string

const (
	SortBySubmittedAt   SortField = "submittedAt"
	SortByName          SortField = "name"
	SortByFundingAmount SortField = "fundingAmount"
	SortByFundingType   SortField = "fundingType"
)

// ParseSortField maps a column name to a SortField. "createdAt" is accepted
// as an alias of submittedAt.
func ParseSortField(s string) (SortField, bool) {
	switch SortField(s) {
	case SortBySubmittedAt, "createdAt", "":
		return SortBySubmittedAt, true
	case SortByName, SortByFundingAmount, SortByFundingType:
		return SortField(s), true
	}
	return "", false
}

// Sort returns a sorted copy of apps. The sort is stable, so ties keep
// their listing order in both directions.
func Sort(apps []Application, field SortField, desc bool) []Application {
	out := append([]Application(nil), apps...)
	less := lessFunc(field)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func lessFunc(field SortField) func(a, b Application) bool {
	switch field {
	case SortByName:
		return func(a, b Application) bool { return strings.ToLower(a.Name()) < strings.ToLower(b.Name()) }
	case SortByFundingAmount:
		return func(a, b Application) bool { return a.FundingInfo.FundingAmount < b.FundingInfo.FundingAmount }
	case SortByFundingType:
		return func(a, b Application) bool { return a.FundingInfo.FundingType < b.FundingInfo.FundingType }
	default:
		return func(a, b Application) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

// Paginate returns page (1-based, clamped to the valid range) of apps and
// the total page count. An empty listing has one empty page.
func Paginate(apps []Application, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := (len(apps) + size - 1) / size
	if total == 0 {
		total = 1
	}
	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}

	start := (page - 1) * size
	end := start + size
	if end > len(apps) {
		end = len(apps)
	}
	return Page{
		Applications: append([]Application(nil), apps[start:end]...),
		CurrentPage:  page,
		TotalPages:   total,
	}
}

// CountByStatus tallies applications per status. Every known status is
// present in the result, possibly with zero.
func CountByStatus(apps []Application) map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, a := range apps {
		counts[a.Status]++
	}
	return counts
}

// FundingTypes returns the distinct funding types present, sorted.
func FundingTypes(apps []Application) []string {
	seen := map[string]bool{}
	var out []string
	for _, a := range apps {
		ft := a.FundingInfo.FundingType
		if ft == "" || seen[ft] {
			continue
		}
		seen[ft] = true
		out = append(out, ft)
	}
	sort.Strings(out)
	return out
}
