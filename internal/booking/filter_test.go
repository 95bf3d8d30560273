package booking

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

// testNow is a Wednesday; weeks run Monday through Sunday.
var testNow = time.Date(2025, 6, 4, 15, 30, 0, 0, time.Local)

func unifiedAt(date string, created time.Time) UnifiedAppointment {
	return UnifiedAppointment{
		ID:              "patient_" + uuid.NewString(),
		Kind:            KindPatient,
		OriginalID:      uuid.New(),
		DisplayName:     "Alice Tran",
		DoctorName:      "Dr. Vu",
		Phone:           "555-0100",
		VisitType:       VisitConsultation,
		Status:          StatusPending,
		Schedule:        ScheduleMorning,
		AppointmentDate: date,
		SlotDate:        FallbackNA,
		CreatedAt:       created,
	}
}

func TestFilter_DateBucketToday_ExcludesDateless(t *testing.T) {
	var list []UnifiedAppointment
	created := testNow.Add(-24 * time.Hour)

	for i := 0; i < 5; i++ {
		list = append(list, unifiedAt("2025-06-04", created))
	}
	for i := 0; i < 3; i++ {
		list = append(list, unifiedAt("", created)) // no date at all
	}
	for i := 0; i < 17; i++ {
		list = append(list, unifiedAt("2025-06-20", created))
	}

	page := filterSortPageAt(list, FilterSpec{DateRange: RangeToday}, SortSpec{}, 1, 50, testNow)
	if page.TotalItems != 5 {
		t.Fatalf("today bucket matched %d records, want 5 (dateless excluded)", page.TotalItems)
	}
}

func TestFilter_DateBuckets(t *testing.T) {
	cases := []struct {
		name  string
		r     DateRange
		date  string
		match bool
	}{
		{"today", RangeToday, "2025-06-04", true},
		{"today excludes tomorrow", RangeToday, "2025-06-05", false},
		{"tomorrow", RangeTomorrow, "2025-06-05", true},
		{"this week monday", RangeThisWeek, "2025-06-02", true},
		{"this week sunday", RangeThisWeek, "2025-06-08", true},
		{"this week excludes next monday", RangeThisWeek, "2025-06-09", false},
		{"next week", RangeNextWeek, "2025-06-11", true},
		{"next week excludes this sunday", RangeNextWeek, "2025-06-08", false},
		{"this month first", RangeThisMonth, "2025-06-01", true},
		{"this month last", RangeThisMonth, "2025-06-30", true},
		{"this month excludes july", RangeThisMonth, "2025-07-01", false},
		{"next month", RangeNextMonth, "2025-07-15", true},
		{"next month excludes june", RangeNextMonth, "2025-06-30", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			list := []UnifiedAppointment{unifiedAt(tc.date, testNow)}
			page := filterSortPageAt(list, FilterSpec{DateRange: tc.r}, SortSpec{}, 1, 10, testNow)
			got := page.TotalItems == 1
			if got != tc.match {
				t.Errorf("date %s in bucket %s = %v, want %v", tc.date, tc.r, got, tc.match)
			}
		})
	}
}

func TestFilter_SlotDateFallback(t *testing.T) {
	u := unifiedAt("", testNow)
	u.SlotDate = "2025-06-04"

	page := filterSortPageAt([]UnifiedAppointment{u}, FilterSpec{DateRange: RangeToday}, SortSpec{}, 1, 10, testNow)
	if page.TotalItems != 1 {
		t.Error("slot date should bucket the record when appointment_date is empty")
	}
}

func TestFilter_QueryCaseInsensitive(t *testing.T) {
	a := unifiedAt("", testNow)
	a.DisplayName = "Alice Tran"
	b := unifiedAt("", testNow)
	b.DisplayName = "Binh Le"

	page := filterSortPageAt([]UnifiedAppointment{a, b}, FilterSpec{Query: "aLiCe"}, SortSpec{}, 1, 10, testNow)
	if page.TotalItems != 1 || page.Items[0].DisplayName != "Alice Tran" {
		t.Fatalf("query match = %+v", page.Items)
	}
}

func TestFilter_QueryMatchesPhoneAndVisitType(t *testing.T) {
	a := unifiedAt("", testNow)
	a.Phone = "555-0987"
	a.VisitType = VisitEmergency

	list := []UnifiedAppointment{a, unifiedAt("", testNow)}

	if page := filterSortPageAt(list, FilterSpec{Query: "0987"}, SortSpec{}, 1, 10, testNow); page.TotalItems != 1 {
		t.Errorf("phone query matched %d, want 1", page.TotalItems)
	}
	if page := filterSortPageAt(list, FilterSpec{Query: "emergency"}, SortSpec{}, 1, 10, testNow); page.TotalItems != 1 {
		t.Errorf("visit type query matched %d, want 1", page.TotalItems)
	}
}

func TestFilter_ExactClausesAnded(t *testing.T) {
	docID := uuid.New()

	a := unifiedAt("", testNow)
	a.Status = StatusCompleted
	a.DoctorID = &docID

	b := unifiedAt("", testNow)
	b.Status = StatusCompleted

	spec := FilterSpec{Status: StatusCompleted, DoctorID: &docID}
	page := filterSortPageAt([]UnifiedAppointment{a, b}, spec, SortSpec{}, 1, 10, testNow)
	if page.TotalItems != 1 {
		t.Fatalf("AND-ed clauses matched %d, want 1", page.TotalItems)
	}
}

func TestFilter_KindDiscriminant(t *testing.T) {
	p := unifiedAt("", testNow)
	g := unifiedAt("", testNow)
	g.Kind = KindGuest

	page := filterSortPageAt([]UnifiedAppointment{p, g}, FilterSpec{Kind: KindGuest}, SortSpec{}, 1, 10, testNow)
	if page.TotalItems != 1 || page.Items[0].Kind != KindGuest {
		t.Fatalf("kind filter = %+v", page.Items)
	}
}

func TestSort_StablePreservesEqualOrder(t *testing.T) {
	a := unifiedAt("", testNow)
	a.DisplayName = "Same"
	a.Phone = "first"
	b := unifiedAt("", testNow)
	b.DisplayName = "Same"
	b.Phone = "second"

	page := filterSortPageAt([]UnifiedAppointment{a, b}, FilterSpec{}, SortSpec{Field: SortByName}, 1, 10, testNow)
	if page.Items[0].Phone != "first" || page.Items[1].Phone != "second" {
		t.Error("equal sort keys must keep relative order")
	}
}

func TestSort_ByDateDescending(t *testing.T) {
	a := unifiedAt("2025-06-01", testNow)
	b := unifiedAt("2025-06-10", testNow)
	c := unifiedAt("", testNow) // dateless sorts last

	page := filterSortPageAt([]UnifiedAppointment{a, c, b}, FilterSpec{}, SortSpec{Field: SortByDate, Descending: true}, 1, 10, testNow)

	if page.Items[0].AppointmentDate != "2025-06-10" || page.Items[1].AppointmentDate != "2025-06-01" {
		t.Errorf("descending date order wrong: %q, %q", page.Items[0].AppointmentDate, page.Items[1].AppointmentDate)
	}
	if page.Items[2].AppointmentDate != "" {
		t.Error("dateless record should sort last")
	}
}

func TestSort_NoSpecKeepsInputOrder(t *testing.T) {
	a := unifiedAt("", testNow.Add(time.Hour))
	b := unifiedAt("", testNow)
	list := []UnifiedAppointment{a, b}

	page := filterSortPageAt(list, FilterSpec{}, SortSpec{}, 1, 10, testNow)
	if page.Items[0].ID != a.ID || page.Items[1].ID != b.ID {
		t.Error("empty sort spec must keep aggregator order")
	}
}

func TestPaginate_ClampsBeyondLastPage(t *testing.T) {
	var list []UnifiedAppointment
	for i := 0; i < 25; i++ {
		list = append(list, unifiedAt("", testNow))
	}

	page := filterSortPageAt(list, FilterSpec{}, SortSpec{}, 99, 10, testNow)
	if page.Page != 3 {
		t.Errorf("page = %d, want clamp to 3", page.Page)
	}
	if len(page.Items) != 5 {
		t.Errorf("last page has %d items, want 5", len(page.Items))
	}
	if page.TotalPages != 3 || page.TotalItems != 25 {
		t.Errorf("totals = %d pages / %d items", page.TotalPages, page.TotalItems)
	}
}

func TestPaginate_EmptySet(t *testing.T) {
	page := filterSortPageAt(nil, FilterSpec{}, SortSpec{}, 5, 10, testNow)
	if len(page.Items) != 0 || page.Page != 1 || page.TotalItems != 0 {
		t.Errorf("empty set page = %+v", page)
	}
}

func TestPaginate_PageZeroTreatedAsFirst(t *testing.T) {
	list := []UnifiedAppointment{unifiedAt("", testNow)}
	page := filterSortPageAt(list, FilterSpec{}, SortSpec{}, 0, 10, testNow)
	if page.Page != 1 || len(page.Items) != 1 {
		t.Errorf("page 0 handling = %+v", page)
	}
}

func TestFilterSortPage_Idempotent(t *testing.T) {
	var list []UnifiedAppointment
	for i := 0; i < 12; i++ {
		u := unifiedAt("2025-06-04", testNow.Add(time.Duration(i)*time.Minute))
		if i%2 == 0 {
			u.Status = StatusCompleted
		}
		list = append(list, u)
	}

	spec := FilterSpec{Status: StatusCompleted}
	srt := SortSpec{Field: SortByCreatedAt}

	first := filterSortPageAt(list, spec, srt, 1, 4, testNow)
	second := filterSortPageAt(list, spec, srt, 1, 4, testNow)
	if !reflect.DeepEqual(first, second) {
		t.Error("same spec applied twice must yield the same page")
	}

	// Changing only the page number slices the same set.
	page2 := filterSortPageAt(list, spec, srt, 2, 4, testNow)
	if page2.TotalItems != first.TotalItems || page2.TotalPages != first.TotalPages {
		t.Error("page number must not alter the filtered set")
	}
	if len(first.Items) > 0 && len(page2.Items) > 0 && first.Items[0].ID == page2.Items[0].ID {
		t.Error("page 2 must not repeat page 1")
	}
}

func TestFilterSortPage_DoesNotMutateInput(t *testing.T) {
	a := unifiedAt("", testNow.Add(time.Hour))
	a.DisplayName = "Zed"
	b := unifiedAt("", testNow)
	b.DisplayName = "Amy"
	list := []UnifiedAppointment{a, b}

	filterSortPageAt(list, FilterSpec{}, SortSpec{Field: SortByName}, 1, 10, testNow)

	if list[0].DisplayName != "Zed" || list[1].DisplayName != "Amy" {
		t.Error("input list was reordered")
	}
}
