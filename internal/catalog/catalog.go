// Package catalog holds the in-memory predicates applied to already-fetched
// listings: text search, category and status equality, sorting and badge tones.
package catalog

import (
	"sort"
	"strings"

	"github.com/noah-isme/edumarket-api/internal/models"
)

// Field names a listing text field that search may look at.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldUniversity  Field = "university"
	FieldOwner       Field = "owner"
	FieldCourseCode  Field = "course_code"
	FieldSubject     Field = "subject"
)

// AllCategories is the selector value that disables category filtering.
const AllCategories = "all"

// Criteria selects listings. Zero values match everything; a nil Fields
// searches the title only.
type Criteria struct {
	Search   string
	Fields   []Field
	Category string
	Status   string
}

// Matches reports whether l satisfies every populated criterion.
func (c Criteria) Matches(l models.Listing) bool {
	return c.matchesSearch(l) && c.matchesCategory(l) && c.matchesStatus(l)
}

func (c Criteria) matchesSearch(l models.Listing) bool {
	term := strings.TrimSpace(c.Search)
	if term == "" {
		return true
	}
	fields := c.Fields
	if len(fields) == 0 {
		fields = []Field{FieldTitle}
	}
	for _, f := range fields {
		if containsFold(fieldValue(l, f), term) {
			return true
		}
	}
	return false
}

func (c Criteria) matchesCategory(l models.Listing) bool {
	want := strings.TrimSpace(c.Category)
	if want == "" || strings.EqualFold(want, AllCategories) {
		return true
	}
	return strings.EqualFold(want, l.CategoryID) ||
		strings.EqualFold(want, l.CategorySlug) ||
		strings.EqualFold(want, l.CategoryName)
}

func (c Criteria) matchesStatus(l models.Listing) bool {
	want := strings.TrimSpace(c.Status)
	if want == "" || strings.EqualFold(want, "all") {
		return true
	}
	return strings.EqualFold(want, string(l.Status))
}

// Filter returns the listings matching c in their original order.
func Filter(listings []models.Listing, c Criteria) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if c.Matches(l) {
			out = append(out, l)
		}
	}
	return out
}

// containsFold reports whether needle is a case-insensitive substring of haystack.
func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func fieldValue(l models.Listing, f Field) string {
	switch f {
	case FieldTitle:
		return l.Title
	case FieldDescription:
		return l.Description
	case FieldUniversity:
		return deref(l.University)
	case FieldOwner:
		return l.OwnerName
	case FieldCourseCode:
		return deref(l.CourseCode)
	case FieldSubject:
		return deref(l.Subject)
	}
	return ""
}

// SortKey is a marketplace ordering.
type SortKey string

const (
	SortRecent    SortKey = "recent"
	SortPopular   SortKey = "popular"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortTitle     SortKey = "title"
)

// ParseSortKey maps a query value to a SortKey, defaulting to recent.
func ParseSortKey(raw string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(raw))); k {
	case SortPopular, SortPriceLow, SortPriceHigh, SortTitle:
		return k
	}
	return SortRecent
}

// Sort orders listings in place. Ties keep their relative order.
func Sort(listings []models.Listing, key SortKey) {
	var less func(a, b models.Listing) bool
	switch key {
	case SortPopular:
		less = func(a, b models.Listing) bool { return a.DownloadCount > b.DownloadCount }
	case SortPriceLow:
		less = func(a, b models.Listing) bool { return a.Price < b.Price }
	case SortPriceHigh:
		less = func(a, b models.Listing) bool { return a.Price > b.Price }
	case SortTitle:
		less = func(a, b models.Listing) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	default:
		less = func(a, b models.Listing) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(listings, func(i, j int) bool { return less(listings[i], listings[j]) })
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
