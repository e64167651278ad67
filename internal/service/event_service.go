// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/d-karpukhin/event-board/internal/apperr"
	"github.com/d-karpukhin/event-board/internal/model"
)

// Minimum distance between "now" and the scheduled event date.
const (
	ownerEventDateMargin = 2 * time.Hour
	adminEventDateMargin = 1 * time.Hour
)

// EventStore is the persistence contract the event lifecycle needs.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) (*model.Event, error)
	Update(ctx context.Context, e *model.Event) (*model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetByIDAndInitiator(ctx context.Context, id, initiatorID string) (*model.Event, error)
	GetByIDIfPublished(ctx context.Context, id string) (*model.Event, error)
	ListByInitiator(ctx context.Context, initiatorID string, page model.Page) ([]model.Event, error)
	SearchPublic(ctx context.Context, c model.PublicCriteria, page model.Page) ([]model.Event, error)
	SearchAdmin(ctx context.Context, c model.AdminCriteria, page model.Page) ([]model.Event, error)
}

// Directory resolves actor and category references.
type Directory interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetCategoryByID(ctx context.Context, id string) (*model.Category, error)
}

// ViewCounter is the statistics collector contract. RecordHit is
// fire-and-forget; Counts errors are treated as soft failures.
type ViewCounter interface {
	RecordHit(ctx context.Context, uri, ip string)
	Counts(ctx context.Context, start, end time.Time, uris []string, unique bool) (map[string]int64, error)
}

// EventService owns event state transitions and answers listing queries
// enriched with view counts.
type EventService struct {
	events EventStore
	dir    Directory
	views  ViewCounter
	now    func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, dir Directory, views ViewCounter) *EventService {
	return &EventService{events: events, dir: dir, views: views, now: time.Now}
}

// Create stores a new event on behalf of ownerID. The event starts PENDING
// with a zero confirmed counter; the scheduled date must be at least two
// hours ahead.
func (s *EventService) Create(ctx context.Context, ownerID string, in model.NewEvent) (*model.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkEventDate(in.EventDate.Time, ownerEventDateMargin); err != nil {
		return nil, err
	}
	if _, err := s.dir.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	if _, err := s.dir.GetCategoryByID(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	event := &model.Event{
		Title:             in.Title,
		Annotation:        in.Annotation,
		Description:       in.Description,
		CategoryID:        in.CategoryID,
		InitiatorID:       ownerID,
		Location:          in.Location,
		EventDate:         in.EventDate,
		State:             model.EventPending,
		Paid:              in.Paid,
		ParticipantLimit:  in.ParticipantLimit,
		RequestModeration: in.Moderated(),
		ConfirmedRequests: 0,
	}
	return s.events.Create(ctx, event)
}

// UpdateByOwner applies a field patch on the owner's behalf. Published
// events cannot be changed by their owner; the only state actions allowed
// here are SEND_TO_REVIEW and CANCEL_REVIEW.
func (s *EventService) UpdateByOwner(ctx context.Context, ownerID, eventID string, p model.EventPatch) (*model.Event, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.EventDate != nil {
		if err := s.checkEventDate(p.EventDate.Time, ownerEventDateMargin); err != nil {
			return nil, err
		}
	}
	if _, err := s.dir.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.InitiatorID != ownerID {
		return nil, apperr.Forbidden("user with id=%s is not the initiator of event with id=%s", ownerID, eventID)
	}
	if event.State == model.EventPublished {
		return nil, apperr.Conflict("only pending or canceled events can be changed")
	}

	switch p.StateAction {
	case "":
	case model.SendToReview:
		event.State = model.EventPending
	case model.CancelReview:
		event.State = model.EventCanceled
	default:
		return nil, apperr.Conflict("field: stateAction. Incorrect action state. Value: %s", p.StateAction)
	}

	if err := s.applyPatch(ctx, event, p); err != nil {
		return nil, err
	}
	return s.events.Update(ctx, event)
}

// UpdateByAdmin applies a field patch with admin authority. PUBLISH_EVENT
// is valid only from PENDING and stamps publishedOn exactly once;
// REJECT_EVENT is valid unless the event is already PUBLISHED.
func (s *EventService) UpdateByAdmin(ctx context.Context, eventID string, p model.EventPatch) (*model.Event, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.EventDate != nil {
		if err := s.checkEventDate(p.EventDate.Time, adminEventDateMargin); err != nil {
			return nil, err
		}
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	// State preconditions are checked before any field is touched.
	switch p.StateAction {
	case "":
	case model.PublishEvent:
		if event.State != model.EventPending {
			return nil, apperr.Conflict(
				"cannot publish the event because it's not in the right state: %s", event.State)
		}
	case model.RejectEvent:
		if event.State == model.EventPublished {
			return nil, apperr.Conflict(
				"cannot reject the event because it's not in the right state: %s", event.State)
		}
	default:
		return nil, apperr.Conflict("field: stateAction. Incorrect action state. Value: %s", p.StateAction)
	}

	if err := s.applyPatch(ctx, event, p); err != nil {
		return nil, err
	}

	switch p.StateAction {
	case model.PublishEvent:
		event.State = model.EventPublished
		publishedOn := model.NewDateTime(s.now())
		event.PublishedOn = &publishedOn
	case model.RejectEvent:
		event.State = model.EventCanceled
	}

	updated, err := s.events.Update(ctx, event)
	if err != nil {
		return nil, err
	}
	s.enrichOne(ctx, updated)
	return updated, nil
}

// GetPublicByID returns a published event, records the access against the
// event's route, and enriches the result with its view count. Unpublished
// events report plain NotFound.
func (s *EventService) GetPublicByID(ctx context.Context, id, clientIP string) (*model.Event, error) {
	event, err := s.events.GetByIDIfPublished(ctx, id)
	if err != nil {
		return nil, err
	}
	s.views.RecordHit(ctx, eventURI(id), clientIP)
	s.enrichOne(ctx, event)
	return event, nil
}

// SearchPublic answers the public listing query: filter, enrich with view
// counts, record exactly one hit for the served request, and sort.
func (s *EventService) SearchPublic(ctx context.Context, c model.PublicCriteria, page model.Page, clientIP string) ([]model.Event, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}

	events, err := s.events.SearchPublic(ctx, c, page)
	if err != nil {
		return nil, err
	}
	s.views.RecordHit(ctx, "/events", clientIP)
	s.enrich(ctx, events)

	// View-count ordering cannot be pushed into the same query as the
	// relational predicate; ties keep the engine's natural order.
	if c.Sort == model.SortByViews {
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Views > events[j].Views
		})
	}
	return events, nil
}

// SearchAdmin answers the administrative listing query.
func (s *EventService) SearchAdmin(ctx context.Context, c model.AdminCriteria, page model.Page) ([]model.Event, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}

	events, err := s.events.SearchAdmin(ctx, c, page)
	if err != nil {
		return nil, err
	}
	s.enrich(ctx, events)
	return events, nil
}

// ListByOwner returns the owner's events, view-count enriched.
func (s *EventService) ListByOwner(ctx context.Context, ownerID string, page model.Page) ([]model.Event, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.dir.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}

	events, err := s.events.ListByInitiator(ctx, ownerID, page)
	if err != nil {
		return nil, err
	}
	s.enrich(ctx, events)
	return events, nil
}

// GetByIDAndOwner returns one of the owner's events, view-count enriched.
func (s *EventService) GetByIDAndOwner(ctx context.Context, ownerID, eventID string) (*model.Event, error) {
	if _, err := s.dir.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	event, err := s.events.GetByIDAndInitiator(ctx, eventID, ownerID)
	if err != nil {
		return nil, err
	}
	s.enrichOne(ctx, event)
	return event, nil
}

func (s *EventService) applyPatch(ctx context.Context, event *model.Event, p model.EventPatch) error {
	if p.Title != nil {
		event.Title = *p.Title
	}
	if p.Annotation != nil {
		event.Annotation = *p.Annotation
	}
	if p.Description != nil {
		event.Description = *p.Description
	}
	if p.CategoryID != nil {
		if _, err := s.dir.GetCategoryByID(ctx, *p.CategoryID); err != nil {
			return err
		}
		event.CategoryID = *p.CategoryID
	}
	if p.EventDate != nil {
		event.EventDate = *p.EventDate
	}
	if p.Location != nil {
		event.Location = *p.Location
	}
	if p.Paid != nil {
		event.Paid = *p.Paid
	}
	if p.ParticipantLimit != nil {
		event.ParticipantLimit = *p.ParticipantLimit
	}
	if p.RequestModeration != nil {
		event.RequestModeration = *p.RequestModeration
	}
	return nil
}

// enrich fills Views for every event in place. The query window spans from
// the earliest publication among the batch until now; when nothing in the
// batch is published the collector is not called at all and every count
// stays zero.
func (s *EventService) enrich(ctx context.Context, events []model.Event) {
	var (
		windowStart time.Time
		uris        []string
	)
	for _, e := range events {
		if e.PublishedOn == nil {
			continue
		}
		if windowStart.IsZero() || e.PublishedOn.Before(windowStart) {
			windowStart = e.PublishedOn.Time
		}
		uris = append(uris, eventURI(e.ID))
	}
	if len(uris) == 0 {
		return
	}

	counts, err := s.views.Counts(ctx, windowStart, s.now(), uris, true)
	if err != nil {
		log.Printf("stats degraded, defaulting views to zero: %v", err)
		return
	}
	for i := range events {
		events[i].Views = counts[eventURI(events[i].ID)]
	}
}

func (s *EventService) checkEventDate(eventDate time.Time, margin time.Duration) error {
	if eventDate.Before(s.now().Add(margin)) {
		return apperr.BadRequest(
			"field: eventDate. Error: must be at least %s in the future. Value: %s",
			margin, eventDate.Format(model.DateTimeLayout))
	}
	return nil
}

func eventURI(id string) string {
	return "/events/" + id
}

// enrichOne routes a single event through the batch enricher.
func (s *EventService) enrichOne(ctx context.Context, e *model.Event) {
	batch := []model.Event{*e}
	s.enrich(ctx, batch)
	e.Views = batch[0].Views
}
