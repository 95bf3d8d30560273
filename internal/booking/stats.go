package booking

import (
	"context"

	"github.com/bunpmc/clinic-scheduling/internal/percent"
)

// BreakdownEntry is one chart segment: raw count plus its normalized share.
// Percents across a breakdown always sum to exactly 100 (or all zeros when
// there is no data).
type BreakdownEntry struct {
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

var statusOrder = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

var visitTypeOrder = []VisitType{VisitConsultation, VisitFollowUp, VisitEmergency, VisitRoutine}

// StatusBreakdown counts unified appointments per lifecycle status.
func (s *Service) StatusBreakdown(ctx context.Context) ([]BreakdownEntry, error) {
	unified, err := s.ListUnified(ctx)
	if err != nil {
		return nil, err
	}

	counts := make([]int, len(statusOrder))
	for _, u := range unified {
		for i, st := range statusOrder {
			if u.Status == st {
				counts[i]++
				break
			}
		}
	}

	return breakdown(statusLabels(), counts), nil
}

// VisitTypeBreakdown counts unified appointments per visit type.
func (s *Service) VisitTypeBreakdown(ctx context.Context) ([]BreakdownEntry, error) {
	unified, err := s.ListUnified(ctx)
	if err != nil {
		return nil, err
	}

	counts := make([]int, len(visitTypeOrder))
	for _, u := range unified {
		for i, vt := range visitTypeOrder {
			if u.VisitType == vt {
				counts[i]++
				break
			}
		}
	}

	return breakdown(visitTypeLabels(), counts), nil
}

func statusLabels() []string {
	labels := make([]string, len(statusOrder))
	for i, st := range statusOrder {
		labels[i] = string(st)
	}
	return labels
}

func visitTypeLabels() []string {
	labels := make([]string, len(visitTypeOrder))
	for i, vt := range visitTypeOrder {
		labels[i] = string(vt)
	}
	return labels
}

func breakdown(labels []string, counts []int) []BreakdownEntry {
	percents := percent.NormalizeCounts(counts)

	entries := make([]BreakdownEntry, len(labels))
	for i := range labels {
		entries[i] = BreakdownEntry{
			Label:   labels[i],
			Count:   counts[i],
			Percent: percents[i],
		}
	}
	return entries
}
