// Package model defines the core domain types for the event board service.
package model

// EventState is the moderation state of an event.
type EventState string

const (
	EventPending   EventState = "PENDING"
	EventPublished EventState = "PUBLISHED"
	EventCanceled  EventState = "CANCELED"
)

// Valid reports whether s is one of the known event states.
func (s EventState) Valid() bool {
	switch s {
	case EventPending, EventPublished, EventCanceled:
		return true
	}
	return false
}

// RequestStatus is the state of a participation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

// StateAction is a requested event state transition carried in a patch.
type StateAction string

const (
	// Owner actions.
	SendToReview StateAction = "SEND_TO_REVIEW"
	CancelReview StateAction = "CANCEL_REVIEW"

	// Admin actions.
	PublishEvent StateAction = "PUBLISH_EVENT"
	RejectEvent  StateAction = "REJECT_EVENT"
)

// Location is a geographic point. Locations are deduplicated by exact
// lat/lon equality when events are stored.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event represents a schedulable public activity with a capacity and a
// moderation policy. ConfirmedRequests is the only field shared with the
// participation ledger; every writer mutates it under a row-level lock on
// the event row.
type Event struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Annotation        string     `json:"annotation"`
	Description       string     `json:"description"`
	CategoryID        string     `json:"category"`
	InitiatorID       string     `json:"initiator"`
	Location          Location   `json:"location"`
	EventDate         DateTime   `json:"eventDate"`
	State             EventState `json:"state"`
	Paid              bool       `json:"paid"`
	ParticipantLimit  int        `json:"participantLimit"`
	RequestModeration bool       `json:"requestModeration"`
	ConfirmedRequests int        `json:"confirmedRequests"`
	CreatedOn         DateTime   `json:"createdOn"`
	PublishedOn       *DateTime  `json:"publishedOn,omitempty"`

	// Views is computed from the statistics collector on reads;
	// it is never persisted.
	Views int64 `json:"views"`
}

// Available reports whether the event can accept another confirmed request.
// A participant limit of zero means unlimited.
func (e *Event) Available() bool {
	return e.ParticipantLimit == 0 || e.ConfirmedRequests < e.ParticipantLimit
}

// Request represents a user's ask to participate in an event.
type Request struct {
	ID          string        `json:"id"`
	RequesterID string        `json:"requester"`
	EventID     string        `json:"event"`
	Created     DateTime      `json:"created"`
	Status      RequestStatus `json:"status"`
}

// User is a directory record; account management lives elsewhere.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Category is a directory record; category management lives elsewhere.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
