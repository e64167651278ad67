package model

import (
	"strings"
	"unicode/utf8"

	"github.com/d-karpukhin/event-board/internal/apperr"
)

// NewEvent is the payload for creating an event. RequestModeration is a
// pointer so that an omitted field defaults to true.
type NewEvent struct {
	Title             string   `json:"title"`
	Annotation        string   `json:"annotation"`
	Description       string   `json:"description"`
	CategoryID        string   `json:"category"`
	EventDate         DateTime `json:"eventDate"`
	Location          Location `json:"location"`
	Paid              bool     `json:"paid"`
	ParticipantLimit  int      `json:"participantLimit"`
	RequestModeration *bool    `json:"requestModeration"`
}

// Moderated returns the effective moderation flag (defaults to true).
func (n NewEvent) Moderated() bool {
	return n.RequestModeration == nil || *n.RequestModeration
}

// Validate checks field constraints shared by all creation paths.
func (n NewEvent) Validate() error {
	if err := checkLen("title", n.Title, 3, 120); err != nil {
		return err
	}
	if err := checkLen("annotation", n.Annotation, 20, 2000); err != nil {
		return err
	}
	if err := checkLen("description", n.Description, 20, 7000); err != nil {
		return err
	}
	if n.CategoryID == "" {
		return apperr.BadRequest("field: category. Error: must not be blank")
	}
	if n.EventDate.IsZero() {
		return apperr.BadRequest("field: eventDate. Error: must not be blank")
	}
	if n.ParticipantLimit < 0 {
		return apperr.BadRequest("field: participantLimit. Error: must not be negative. Value: %d", n.ParticipantLimit)
	}
	return nil
}

// EventPatch is a field-level update where nil means "leave unchanged".
// The same shape serves the owner and admin paths; which StateAction values
// are accepted depends on the caller.
type EventPatch struct {
	Title             *string     `json:"title"`
	Annotation        *string     `json:"annotation"`
	Description       *string     `json:"description"`
	CategoryID        *string     `json:"category"`
	EventDate         *DateTime   `json:"eventDate"`
	Location          *Location   `json:"location"`
	Paid              *bool       `json:"paid"`
	ParticipantLimit  *int        `json:"participantLimit"`
	RequestModeration *bool       `json:"requestModeration"`
	StateAction       StateAction `json:"stateAction"`
}

// Validate checks constraints on the fields that are present.
func (p EventPatch) Validate() error {
	if p.Title != nil {
		if err := checkLen("title", *p.Title, 3, 120); err != nil {
			return err
		}
	}
	if p.Annotation != nil {
		if err := checkLen("annotation", *p.Annotation, 20, 2000); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := checkLen("description", *p.Description, 20, 7000); err != nil {
			return err
		}
	}
	if p.ParticipantLimit != nil && *p.ParticipantLimit < 0 {
		return apperr.BadRequest("field: participantLimit. Error: must not be negative. Value: %d", *p.ParticipantLimit)
	}
	return nil
}

// checkLen bounds the length in characters, not bytes.
func checkLen(field, value string, min, max int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < min || n > max {
		return apperr.BadRequest(
			"field: %s. Error: length must be between %d and %d characters. Got: %d", field, min, max, n)
	}
	return nil
}

// StatusUpdate is the owner's batch decision over pending requests.
// RequestIDs keeps the caller's order; capacity is allocated first-come
// within the batch.
type StatusUpdate struct {
	RequestIDs []string      `json:"requestIds"`
	Status     RequestStatus `json:"status"`
}

// Validate ensures the decision is one of the two allowed values.
func (u StatusUpdate) Validate() error {
	if u.Status != RequestConfirmed && u.Status != RequestRejected {
		return apperr.BadRequest("field: status. Error: must be CONFIRMED or REJECTED. Value: %s", u.Status)
	}
	return nil
}

// StatusUpdateResult reports which requests each decision touched.
type StatusUpdateResult struct {
	ConfirmedRequests []Request `json:"confirmedRequests"`
	RejectedRequests  []Request `json:"rejectedRequests"`
}
