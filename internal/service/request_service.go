package service

import (
	"context"

	"github.com/d-karpukhin/event-board/internal/apperr"
	"github.com/d-karpukhin/event-board/internal/model"
	"github.com/d-karpukhin/event-board/internal/monitoring"
)

// RequestStore is the persistence contract the participation ledger needs.
// Counter-affecting operations run inside WithTx with the event row locked
// via LockEvent, so concurrent submit/cancel/decide calls against the same
// event serialise their read-check-write sequence.
type RequestStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockEvent(ctx context.Context, eventID string) (*model.Event, error)
	SetConfirmed(ctx context.Context, eventID string, n int) error
	Insert(ctx context.Context, req *model.Request) (*model.Request, error)
	GetByID(ctx context.Context, id string) (*model.Request, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Request, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Request, error)
	UpdateStatus(ctx context.Context, ids []string, status model.RequestStatus) error
	ListByRequester(ctx context.Context, requesterID string) ([]model.Request, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Request, error)
}

// EventGetter is the minimal event lookup the ledger needs outside a
// transaction.
type EventGetter interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// UserFinder validates actor existence.
type UserFinder interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// RequestService owns participation-request state transitions and the
// capacity-limited confirmation algorithm.
type RequestService struct {
	requests RequestStore
	events   EventGetter
	users    UserFinder
}

// NewRequestService constructs a RequestService with its dependencies.
func NewRequestService(requests RequestStore, events EventGetter, users UserFinder) *RequestService {
	return &RequestService{requests: requests, events: events, users: users}
}

// Submit files a participation request. When the event is unmoderated or
// unlimited the request confirms immediately and the event's counter is
// incremented in the same transaction.
func (s *RequestService) Submit(ctx context.Context, requesterID, eventID string) (*model.Request, error) {
	if _, err := s.users.GetUserByID(ctx, requesterID); err != nil {
		return nil, err
	}

	var result *model.Request
	err := s.requests.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.requests.LockEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.InitiatorID == requesterID {
			return apperr.Conflict(
				"the initiator with id=%s cannot request participation in own event with id=%s", requesterID, eventID)
		}
		if event.State != model.EventPublished {
			return apperr.Conflict("cannot participate in the unpublished event with id=%s", eventID)
		}
		if !event.Available() {
			return apperr.Conflict("the participant limit for event with id=%s has been reached", eventID)
		}

		request := &model.Request{
			RequesterID: requesterID,
			EventID:     eventID,
			Status:      model.RequestPending,
		}
		if !event.RequestModeration || event.ParticipantLimit == 0 {
			request.Status = model.RequestConfirmed
		}

		if result, err = s.requests.Insert(txCtx, request); err != nil {
			return err
		}
		if request.Status == model.RequestConfirmed {
			if err := s.requests.SetConfirmed(txCtx, eventID, event.ConfirmedRequests+1); err != nil {
				return err
			}
			monitoring.TrackDecisions("confirmed", 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel withdraws the requester's own request. Canceling a CONFIRMED
// request releases its slot; canceling an already-CANCELED request
// decrements nothing further.
func (s *RequestService) Cancel(ctx context.Context, requesterID, requestID string) (*model.Request, error) {
	if _, err := s.users.GetUserByID(ctx, requesterID); err != nil {
		return nil, err
	}

	var result *model.Request
	err := s.requests.WithTx(ctx, func(txCtx context.Context) error {
		request, err := s.requests.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}
		if request.RequesterID != requesterID {
			// Foreign requests are hidden, not forbidden.
			return apperr.NotFound("request with id=%s was not found", requestID)
		}

		// Lock ordering: event row first, then the request row, matching
		// the batch-decide path.
		event, err := s.requests.LockEvent(txCtx, request.EventID)
		if err != nil {
			return err
		}
		if request, err = s.requests.GetByIDForUpdate(txCtx, requestID); err != nil {
			return err
		}

		if request.Status == model.RequestCanceled {
			result = request
			return nil
		}
		if request.Status == model.RequestConfirmed {
			if err := s.requests.SetConfirmed(txCtx, event.ID, event.ConfirmedRequests-1); err != nil {
				return err
			}
		}
		if err := s.requests.UpdateStatus(txCtx, []string{request.ID}, model.RequestCanceled); err != nil {
			return err
		}
		request.Status = model.RequestCanceled
		result = request
		monitoring.TrackDecisions("canceled", 1)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListByRequester returns all requests the user has submitted.
func (s *RequestService) ListByRequester(ctx context.Context, requesterID string) ([]model.Request, error) {
	if _, err := s.users.GetUserByID(ctx, requesterID); err != nil {
		return nil, err
	}
	return s.requests.ListByRequester(ctx, requesterID)
}

// ListByEventOwner returns all requests targeting the owner's event.
func (s *RequestService) ListByEventOwner(ctx context.Context, ownerID, eventID string) ([]model.Request, error) {
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.InitiatorID != ownerID {
		return nil, apperr.Forbidden("user with id=%s does not own event with id=%s", ownerID, eventID)
	}
	return s.requests.ListByEvent(ctx, eventID)
}

// BatchDecide applies the owner's decision to a batch of pending requests.
// Confirmation allocates the remaining capacity first-come in the caller's
// order; overflow requests are rejected. Every touched request and the
// counter update commit as one atomic unit.
func (s *RequestService) BatchDecide(ctx context.Context, ownerID, eventID string, upd model.StatusUpdate) (*model.StatusUpdateResult, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}

	result := &model.StatusUpdateResult{
		ConfirmedRequests: []model.Request{},
		RejectedRequests:  []model.Request{},
	}
	err := s.requests.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.requests.LockEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.InitiatorID != ownerID {
			return apperr.Forbidden("user with id=%s does not own event with id=%s", ownerID, eventID)
		}

		// Unlimited or unmoderated events confirmed every request at
		// submission time already; nothing to decide.
		if event.ParticipantLimit == 0 || !event.RequestModeration || len(upd.RequestIDs) == 0 {
			return nil
		}
		if event.ConfirmedRequests >= event.ParticipantLimit {
			return apperr.Conflict("the participant limit for event with id=%s has been reached", eventID)
		}

		targets, err := s.targetsInCallerOrder(txCtx, upd.RequestIDs)
		if err != nil {
			return err
		}

		if upd.Status == model.RequestRejected {
			if err := s.requests.UpdateStatus(txCtx, requestIDs(targets), model.RequestRejected); err != nil {
				return err
			}
			result.RejectedRequests = withStatus(targets, model.RequestRejected)
			monitoring.TrackDecisions("rejected", len(targets))
			return nil
		}

		remaining := event.ParticipantLimit - event.ConfirmedRequests
		if remaining > len(targets) {
			remaining = len(targets)
		}
		confirmed, rejected := targets[:remaining], targets[remaining:]

		if err := s.requests.UpdateStatus(txCtx, requestIDs(confirmed), model.RequestConfirmed); err != nil {
			return err
		}
		if err := s.requests.UpdateStatus(txCtx, requestIDs(rejected), model.RequestRejected); err != nil {
			return err
		}
		if err := s.requests.SetConfirmed(txCtx, eventID, event.ConfirmedRequests+len(confirmed)); err != nil {
			return err
		}

		result.ConfirmedRequests = withStatus(confirmed, model.RequestConfirmed)
		result.RejectedRequests = withStatus(rejected, model.RequestRejected)
		monitoring.TrackDecisions("confirmed", len(confirmed))
		monitoring.TrackDecisions("rejected", len(rejected))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// targetsInCallerOrder loads the targeted requests, verifies that every one
// exists and is still PENDING, and returns them in the caller's order.
// Repeated ids collapse to their first occurrence so each request claims at
// most one slot of the capacity walk.
func (s *RequestService) targetsInCallerOrder(ctx context.Context, ids []string) ([]model.Request, error) {
	found, err := s.requests.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Request, len(found))
	for _, req := range found {
		byID[req.ID] = req
	}

	seen := make(map[string]bool, len(ids))
	ordered := make([]model.Request, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		req, ok := byID[id]
		if !ok {
			return nil, apperr.NotFound("request with id=%s was not found", id)
		}
		if req.Status != model.RequestPending {
			return nil, apperr.BadRequest("the status can be changed only for pending requests")
		}
		ordered = append(ordered, req)
	}
	return ordered, nil
}

func withStatus(requests []model.Request, status model.RequestStatus) []model.Request {
	out := make([]model.Request, len(requests))
	for i, req := range requests {
		req.Status = status
		out[i] = req
	}
	return out
}

func requestIDs(requests []model.Request) []string {
	ids := make([]string, len(requests))
	for i, req := range requests {
		ids[i] = req.ID
	}
	return ids
}
