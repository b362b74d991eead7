package document

import (
	"strings"
)

// SegmentType labels a structurally distinct region of a lease document.
type SegmentType string

const (
	SegmentDataSheet    SegmentType = "data_sheet"
	SegmentRentSchedule SegmentType = "rent_schedule"
	SegmentArticle      SegmentType = "article"
	SegmentExhibit      SegmentType = "exhibit"
	SegmentGeneral      SegmentType = "general"
)

// rentScheduleHeaderKeywords identify rent schedule tables by header row.
var rentScheduleHeaderKeywords = []string{"rent", "year", "annual", "monthly", "lease year"}

// dataSheetHeaderKeywords identify data sheet tables by header row.
var dataSheetHeaderKeywords = []string{"tenant", "landlord", "premises", "square feet"}

// ClassifySection labels a named section from structural cues in its name.
func ClassifySection(name string) SegmentType {
	lower := strings.ToLower(name)

	switch {
	case strings.Contains(lower, "article"):
		return SegmentArticle
	case strings.Contains(lower, "exhibit"):
		return SegmentExhibit
	case strings.Contains(lower, "data sheet"):
		return SegmentDataSheet
	case strings.Contains(lower, "rent"):
		return SegmentRentSchedule
	default:
		return SegmentGeneral
	}
}

// ClassifyTable labels a table by its header row content. Tables carrying a
// pre-assigned Type keep it; only unclassified tables are inspected.
func ClassifyTable(t Table) SegmentType {
	if t.Type != "" {
		return SegmentType(t.Type)
	}

	header := strings.ToLower(strings.Join(t.Headers, " "))

	for _, kw := range rentScheduleHeaderKeywords {
		if strings.Contains(header, kw) {
			return SegmentRentSchedule
		}
	}
	for _, kw := range dataSheetHeaderKeywords {
		if strings.Contains(header, kw) {
			return SegmentDataSheet
		}
	}

	return SegmentGeneral
}

// Valid reports whether s is one of the five known segment labels.
func (s SegmentType) Valid() bool {
	switch s {
	case SegmentDataSheet, SegmentRentSchedule, SegmentArticle, SegmentExhibit, SegmentGeneral:
		return true
	}
	return false
}
