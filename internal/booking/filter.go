package booking

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateRange buckets are computed relative to the current date at local
// midnight and cover full day spans inclusively.
type DateRange string

const (
	RangeToday     DateRange = "today"
	RangeTomorrow  DateRange = "tomorrow"
	RangeThisWeek  DateRange = "this_week"
	RangeNextWeek  DateRange = "next_week"
	RangeThisMonth DateRange = "this_month"
	RangeNextMonth DateRange = "next_month"
)

// FilterSpec is a conjunction of optional clauses; zero values mean "any".
type FilterSpec struct {
	Query     string
	Status    Status
	VisitType VisitType
	DoctorID  *uuid.UUID
	Kind      Kind
	DateRange DateRange
}

type SortField string

const (
	SortByName      SortField = "name"
	SortByDoctor    SortField = "doctor"
	SortByDate      SortField = "date"
	SortByStatus    SortField = "status"
	SortByVisitType SortField = "visit_type"
	SortByCreatedAt SortField = "created_at"
)

type SortSpec struct {
	Field      SortField
	Descending bool
}

// Page is one window of the filtered, sorted unified list.
type Page struct {
	Items      []UnifiedAppointment
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// FilterSortPage derives one page from the unified list. It is pure: the
// input list is never reordered or mutated, and the same spec always yields
// the same page. Pages are 1-indexed; a page past the end clamps to the last
// valid page.
func FilterSortPage(list []UnifiedAppointment, filter FilterSpec, sortSpec SortSpec, page, pageSize int) Page {
	return filterSortPageAt(list, filter, sortSpec, page, pageSize, time.Now())
}

func filterSortPageAt(list []UnifiedAppointment, filter FilterSpec, sortSpec SortSpec, page, pageSize int, now time.Time) Page {
	filtered := make([]UnifiedAppointment, 0, len(list))
	for _, u := range list {
		if matches(u, filter, now) {
			filtered = append(filtered, u)
		}
	}

	applySort(filtered, sortSpec)

	if pageSize <= 0 {
		pageSize = 10
	}

	totalItems := len(filtered)
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > totalItems {
		start = totalItems
	}
	if end > totalItems {
		end = totalItems
	}

	return Page{
		Items:      filtered[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

func matches(u UnifiedAppointment, f FilterSpec, now time.Time) bool {
	if f.Query != "" {
		haystack := strings.ToLower(strings.Join([]string{
			u.DisplayName,
			u.DoctorName,
			u.Phone,
			u.Email,
			u.ID,
			u.OriginalID.String(),
			string(u.VisitType),
		}, " "))
		if !strings.Contains(haystack, strings.ToLower(f.Query)) {
			return false
		}
	}

	if f.Status != "" && u.Status != f.Status {
		return false
	}
	if f.VisitType != "" && u.VisitType != f.VisitType {
		return false
	}
	if f.Kind != "" && u.Kind != f.Kind {
		return false
	}
	if f.DoctorID != nil {
		if u.DoctorID == nil || *u.DoctorID != *f.DoctorID {
			return false
		}
	}

	if f.DateRange != "" {
		d, ok := u.effectiveDate()
		if !ok {
			// Dateless records fall out of every bucket.
			return false
		}
		start, end, ok := bucketSpan(f.DateRange, now)
		if !ok {
			return false
		}
		day := midnight(d)
		if day.Before(start) || day.After(end) {
			return false
		}
	}

	return true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// bucketSpan returns the inclusive [start, end] day range for a bucket. Weeks
// start on Monday.
func bucketSpan(r DateRange, now time.Time) (start, end time.Time, ok bool) {
	today := midnight(now)

	weekday := int(today.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday closes the week
	}
	monday := today.AddDate(0, 0, 1-weekday)

	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

	switch r {
	case RangeToday:
		return today, today, true
	case RangeTomorrow:
		tomorrow := today.AddDate(0, 0, 1)
		return tomorrow, tomorrow, true
	case RangeThisWeek:
		return monday, monday.AddDate(0, 0, 6), true
	case RangeNextWeek:
		return monday.AddDate(0, 0, 7), monday.AddDate(0, 0, 13), true
	case RangeThisMonth:
		return firstOfMonth, firstOfMonth.AddDate(0, 1, -1), true
	case RangeNextMonth:
		next := firstOfMonth.AddDate(0, 1, 0)
		return next, next.AddDate(0, 1, -1), true
	}

	return time.Time{}, time.Time{}, false
}

func applySort(list []UnifiedAppointment, spec SortSpec) {
	if spec.Field == "" {
		// No sort keeps aggregator order (created_at descending).
		return
	}

	less := func(a, b UnifiedAppointment) bool { return false }

	switch spec.Field {
	case SortByName:
		less = func(a, b UnifiedAppointment) bool { return a.DisplayName < b.DisplayName }
	case SortByDoctor:
		less = func(a, b UnifiedAppointment) bool { return a.DoctorName < b.DoctorName }
	case SortByStatus:
		less = func(a, b UnifiedAppointment) bool { return a.Status < b.Status }
	case SortByVisitType:
		less = func(a, b UnifiedAppointment) bool { return a.VisitType < b.VisitType }
	case SortByCreatedAt:
		less = func(a, b UnifiedAppointment) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortByDate:
		less = func(a, b UnifiedAppointment) bool {
			da, okA := a.effectiveDate()
			db, okB := b.effectiveDate()
			if okA != okB {
				return okB // dateless records order before dated ones
			}
			return da.Before(db)
		}
	default:
		return
	}

	sort.SliceStable(list, func(i, j int) bool {
		if spec.Descending {
			return less(list[j], list[i])
		}
		return less(list[i], list[j])
	})
}
