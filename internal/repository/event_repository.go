// Package repository implements all database queries for the event board
// service. It uses pgx directly for lookups and mutations, and goqu to
// translate dynamic search criteria into SQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/d-karpukhin/event-board/internal/apperr"
	"github.com/d-karpukhin/event-board/internal/model"
)

const selectEvent = `
	SELECT e.id, e.title, e.annotation, e.description, e.category_id, e.initiator_id,
	       l.lat, l.lon, e.event_date, e.state, e.paid, e.participant_limit,
	       e.request_moderation, e.confirmed_requests, e.created_on, e.published_on
	FROM events e
	JOIN locations l ON e.location_id = l.id`

// EventRepository handles persistence for events and their locations.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event, resolving its location first.
// Locations are deduplicated by exact lat/lon equality.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) (*model.Event, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	locationID, err := getOrCreateLocation(ctx, tx, e.Location)
	if err != nil {
		return nil, err
	}

	e.ID = uuid.New().String()
	e.CreatedOn = model.NewDateTime(time.Now().UTC())

	_, err = tx.Exec(ctx,
		`INSERT INTO events (id, title, annotation, description, category_id, initiator_id,
		                     location_id, event_date, state, paid, participant_limit,
		                     request_moderation, confirmed_requests, created_on)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.Title, e.Annotation, e.Description, e.CategoryID, e.InitiatorID,
		locationID, e.EventDate.Time, string(e.State), e.Paid, e.ParticipantLimit,
		e.RequestModeration, e.ConfirmedRequests, e.CreatedOn.Time,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return e, nil
}

// Update writes the content and state fields of an event. The confirmed
// counter is owned by the request ledger and is deliberately not touched.
func (r *EventRepository) Update(ctx context.Context, e *model.Event) (*model.Event, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	locationID, err := getOrCreateLocation(ctx, tx, e.Location)
	if err != nil {
		return nil, err
	}

	var publishedOn *time.Time
	if e.PublishedOn != nil {
		publishedOn = &e.PublishedOn.Time
	}

	tag, err := tx.Exec(ctx,
		`UPDATE events
		 SET title = $2, annotation = $3, description = $4, category_id = $5,
		     location_id = $6, event_date = $7, state = $8, paid = $9,
		     participant_limit = $10, request_moderation = $11, published_on = $12
		 WHERE id = $1`,
		e.ID, e.Title, e.Annotation, e.Description, e.CategoryID,
		locationID, e.EventDate.Time, string(e.State), e.Paid,
		e.ParticipantLimit, e.RequestModeration, publishedOn,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("event with id=%s was not found", e.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return e, nil
}

// GetByID returns a single event.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return r.getOne(ctx, selectEvent+` WHERE e.id = $1`, id)
}

// GetByIDAndInitiator returns the event only when it belongs to initiatorID.
func (r *EventRepository) GetByIDAndInitiator(ctx context.Context, id, initiatorID string) (*model.Event, error) {
	return r.getOne(ctx, selectEvent+` WHERE e.id = $1 AND e.initiator_id = $2`, id, initiatorID)
}

// GetByIDIfPublished returns the event only when it is published. The state
// is part of the lookup predicate so an unpublished event is indistinguishable
// from an absent one.
func (r *EventRepository) GetByIDIfPublished(ctx context.Context, id string) (*model.Event, error) {
	return r.getOne(ctx, selectEvent+` WHERE e.id = $1 AND e.state = $2`, id, string(model.EventPublished))
}

func (r *EventRepository) getOne(ctx context.Context, query string, args ...any) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("event with id=%v was not found", args[0])
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListByInitiator returns the initiator's events in creation order.
func (r *EventRepository) ListByInitiator(ctx context.Context, initiatorID string, page model.Page) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		selectEvent+` WHERE e.initiator_id = $1 ORDER BY e.created_on ASC OFFSET $2 LIMIT $3`,
		initiatorID, page.From, page.Size,
	)
	if err != nil {
		return nil, fmt.Errorf("list events by initiator: %w", err)
	}
	return collectEvents(rows)
}

// SearchPublic runs the public criteria against the events table.
func (r *EventRepository) SearchPublic(ctx context.Context, c model.PublicCriteria, page model.Page) ([]model.Event, error) {
	sql, args, err := buildPublicSearch(c, page, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return collectEvents(rows)
}

// SearchAdmin runs the admin criteria against the events table.
func (r *EventRepository) SearchAdmin(ctx context.Context, c model.AdminCriteria, page model.Page) ([]model.Event, error) {
	sql, args, err := buildAdminSearch(c, page)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return collectEvents(rows)
}

func getOrCreateLocation(ctx context.Context, tx pgx.Tx, loc model.Location) (string, error) {
	var id string
	err := tx.QueryRow(ctx,
		`SELECT id FROM locations WHERE lat = $1 AND lon = $2`, loc.Lat, loc.Lon,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("find location: %w", err)
	}

	id = uuid.New().String()
	if _, err := tx.Exec(ctx,
		`INSERT INTO locations (id, lat, lon) VALUES ($1, $2, $3)`, id, loc.Lat, loc.Lon,
	); err != nil {
		return "", fmt.Errorf("insert location: %w", err)
	}
	return id, nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		e           model.Event
		state       string
		publishedOn *time.Time
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Annotation, &e.Description, &e.CategoryID, &e.InitiatorID,
		&e.Location.Lat, &e.Location.Lon, &e.EventDate.Time, &state, &e.Paid,
		&e.ParticipantLimit, &e.RequestModeration, &e.ConfirmedRequests,
		&e.CreatedOn.Time, &publishedOn,
	)
	if err != nil {
		return nil, err
	}
	e.State = model.EventState(state)
	if publishedOn != nil {
		dt := model.NewDateTime(*publishedOn)
		e.PublishedOn = &dt
	}
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]model.Event, error) {
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
