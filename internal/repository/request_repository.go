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

const selectRequest = `SELECT id, requester_id, event_id, created, status FROM requests`

// RequestRepository handles persistence for participation requests and the
// event's confirmed counter. Counter mutations only ever happen inside a
// WithTx scope that holds a row-level lock on the event (LockEvent), so
// concurrent submit/cancel/decide calls serialise their read-check-write.
type RequestRepository struct {
	db *pgxpool.Pool
}

// NewRequestRepository constructs a RequestRepository.
func NewRequestRepository(db *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{db: db}
}

// WithTx runs fn inside a single transaction.
func (r *RequestRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

func (r *RequestRepository) q(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// LockEvent reads the ledger-relevant event fields under SELECT ... FOR
// UPDATE. The lock is held until the surrounding transaction resolves.
func (r *RequestRepository) LockEvent(ctx context.Context, eventID string) (*model.Event, error) {
	var (
		e     model.Event
		state string
	)
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, initiator_id, state, participant_limit, request_moderation, confirmed_requests
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(&e.ID, &e.InitiatorID, &state, &e.ParticipantLimit, &e.RequestModeration, &e.ConfirmedRequests)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("event with id=%s was not found", eventID)
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	e.State = model.EventState(state)
	return &e, nil
}

// SetConfirmed writes the event's confirmed counter.
func (r *RequestRepository) SetConfirmed(ctx context.Context, eventID string, n int) error {
	if _, err := r.q(ctx).Exec(ctx,
		`UPDATE events SET confirmed_requests = $2 WHERE id = $1`, eventID, n,
	); err != nil {
		return fmt.Errorf("update confirmed count: %w", err)
	}
	return nil
}

// Insert stores a new request. A second active request for the same
// requester and event trips the partial unique index.
func (r *RequestRepository) Insert(ctx context.Context, req *model.Request) (*model.Request, error) {
	req.ID = uuid.New().String()
	req.Created = model.NewDateTime(time.Now().UTC())

	_, err := r.q(ctx).Exec(ctx,
		`INSERT INTO requests (id, requester_id, event_id, created, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		req.ID, req.RequesterID, req.EventID, req.Created.Time, string(req.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict(
				"user with id=%s already has an active request for event with id=%s", req.RequesterID, req.EventID)
		}
		return nil, fmt.Errorf("insert request: %w", err)
	}
	return req, nil
}

// GetByID returns a single request.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*model.Request, error) {
	return r.getOne(ctx, selectRequest+` WHERE id = $1`, id)
}

// GetByIDForUpdate returns a single request holding a row-level lock on it.
func (r *RequestRepository) GetByIDForUpdate(ctx context.Context, id string) (*model.Request, error) {
	return r.getOne(ctx, selectRequest+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *RequestRepository) getOne(ctx context.Context, query, id string) (*model.Request, error) {
	req, err := scanRequest(r.q(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("request with id=%s was not found", id)
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// GetByIDs returns the requests for the given ids, in no particular order.
func (r *RequestRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Request, error) {
	rows, err := r.q(ctx).Query(ctx, selectRequest+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get requests by ids: %w", err)
	}
	return collectRequests(rows)
}

// UpdateStatus moves every listed request to the given status.
func (r *RequestRepository) UpdateStatus(ctx context.Context, ids []string, status model.RequestStatus) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.q(ctx).Exec(ctx,
		`UPDATE requests SET status = $1 WHERE id = ANY($2)`, string(status), ids,
	); err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	return nil
}

// ListByRequester returns all requests a user has submitted, oldest first.
func (r *RequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]model.Request, error) {
	rows, err := r.q(ctx).Query(ctx,
		selectRequest+` WHERE requester_id = $1 ORDER BY created ASC`, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list requests by requester: %w", err)
	}
	return collectRequests(rows)
}

// ListByEvent returns all requests targeting an event, oldest first.
func (r *RequestRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Request, error) {
	rows, err := r.q(ctx).Query(ctx,
		selectRequest+` WHERE event_id = $1 ORDER BY created ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list requests by event: %w", err)
	}
	return collectRequests(rows)
}

func scanRequest(row pgx.Row) (*model.Request, error) {
	var (
		req    model.Request
		status string
	)
	if err := row.Scan(&req.ID, &req.RequesterID, &req.EventID, &req.Created.Time, &status); err != nil {
		return nil, err
	}
	req.Status = model.RequestStatus(status)
	return &req, nil
}

func collectRequests(rows pgx.Rows) ([]model.Request, error) {
	defer rows.Close()

	var requests []model.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}
