package model

import (
	"time"

	"github.com/d-karpukhin/event-board/internal/apperr"
)

// EventSort selects the ordering of a public search.
type EventSort string

const (
	SortByEventDate EventSort = "EVENT_DATE"
	SortByViews     EventSort = "VIEWS"
)

// Page is offset-based pagination.
type Page struct {
	From int
	Size int
}

// Validate enforces from >= 0 and size >= 1.
func (p Page) Validate() error {
	if p.From < 0 {
		return apperr.BadRequest("field: from. Error: must not be negative. Value: %d", p.From)
	}
	if p.Size < 1 {
		return apperr.BadRequest("field: size. Error: must be positive. Value: %d", p.Size)
	}
	return nil
}

// PublicCriteria is the storage-agnostic filter set for public event search.
// Absent filters (zero values / nils) are omitted from the resulting
// predicate, never treated as "match nothing". The storage adapter
// translates the criteria into its native query language.
type PublicCriteria struct {
	Text          string
	CategoryIDs   []string
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	Sort          EventSort
}

// Validate fails only on an inverted date range.
func (c PublicCriteria) Validate() error {
	return validateRange(c.RangeStart, c.RangeEnd)
}

// AdminCriteria is the filter set for administrative event search.
// Unlike the public mode it carries no implicit state restriction and no
// default "future only" date filter.
type AdminCriteria struct {
	InitiatorIDs []string
	States       []EventState
	CategoryIDs  []string
	RangeStart   *time.Time
	RangeEnd     *time.Time
}

// Validate fails only on an inverted date range.
func (c AdminCriteria) Validate() error {
	return validateRange(c.RangeStart, c.RangeEnd)
}

func validateRange(start, end *time.Time) error {
	if start != nil && end != nil && start.After(*end) {
		return apperr.BadRequest(
			"field: rangeStart. Error: rangeStart cannot be after rangeEnd. Value: %s", start.Format(DateTimeLayout))
	}
	return nil
}
