package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d-karpukhin/event-board/internal/apperr"
	"github.com/d-karpukhin/event-board/internal/model"
)

// fakeDirectory resolves users and categories from maps.
type fakeDirectory struct {
	users      map[string]model.User
	categories map[string]model.Category
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:      map[string]model.User{},
		categories: map[string]model.Category{},
	}
}

func (d *fakeDirectory) addUser(id string) {
	d.users[id] = model.User{ID: id, Name: "user " + id, Email: id + "@example.com"}
}

func (d *fakeDirectory) addCategory(id string) {
	d.categories[id] = model.Category{ID: id, Name: "category " + id}
}

func (d *fakeDirectory) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, apperr.NotFound("user with id=%s was not found", id)
	}
	return &u, nil
}

func (d *fakeDirectory) GetCategoryByID(_ context.Context, id string) (*model.Category, error) {
	c, ok := d.categories[id]
	if !ok {
		return nil, apperr.NotFound("category with id=%s was not found", id)
	}
	return &c, nil
}

// fakeViewCounter records hits and serves canned counts.
type fakeViewCounter struct {
	mu         sync.Mutex
	hits       []string
	counts     map[string]int64
	err        error
	queries    int
	lastStart  time.Time
	lastEnd    time.Time
	lastURIs   []string
	lastUnique bool
}

func (v *fakeViewCounter) RecordHit(_ context.Context, uri, _ string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hits = append(v.hits, uri)
}

func (v *fakeViewCounter) Counts(_ context.Context, start, end time.Time, uris []string, unique bool) (map[string]int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.queries++
	v.lastStart, v.lastEnd, v.lastURIs, v.lastUnique = start, end, uris, unique
	if v.err != nil {
		return nil, v.err
	}
	return v.counts, nil
}

// fakeEventStore keeps events in a map; search results are preset by tests.
type fakeEventStore struct {
	mu           sync.Mutex
	events       map[string]*model.Event
	searchResult []model.Event
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: map[string]*model.Event{}}
}

func (s *fakeEventStore) put(e *model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
}

func (s *fakeEventStore) Create(_ context.Context, e *model.Event) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.New().String()
	e.CreatedOn = model.NewDateTime(time.Now())
	s.events[e.ID] = e
	return e, nil
}

func (s *fakeEventStore) Update(_ context.Context, e *model.Event) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; !ok {
		return nil, apperr.NotFound("event with id=%s was not found", e.ID)
	}
	s.events[e.ID] = e
	return e, nil
}

func (s *fakeEventStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, apperr.NotFound("event with id=%s was not found", id)
	}
	copied := *e
	return &copied, nil
}

func (s *fakeEventStore) GetByIDAndInitiator(ctx context.Context, id, initiatorID string) (*model.Event, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil || e.InitiatorID != initiatorID {
		return nil, apperr.NotFound("event with id=%s was not found", id)
	}
	return e, nil
}

func (s *fakeEventStore) GetByIDIfPublished(ctx context.Context, id string) (*model.Event, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil || e.State != model.EventPublished {
		return nil, apperr.NotFound("event with id=%s was not found", id)
	}
	return e, nil
}

func (s *fakeEventStore) ListByInitiator(_ context.Context, initiatorID string, _ model.Page) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, e := range s.events {
		if e.InitiatorID == initiatorID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeEventStore) SearchPublic(_ context.Context, _ model.PublicCriteria, _ model.Page) ([]model.Event, error) {
	return append([]model.Event(nil), s.searchResult...), nil
}

func (s *fakeEventStore) SearchAdmin(_ context.Context, _ model.AdminCriteria, _ model.Page) ([]model.Event, error) {
	return append([]model.Event(nil), s.searchResult...), nil
}

// fakeRequestStore implements the ledger contract in memory. WithTx takes a
// single mutex, standing in for the event row lock: transactions against the
// store serialise exactly like the SELECT ... FOR UPDATE discipline they
// mirror. Mutations are applied immediately; the service only mutates after
// its checks pass, so there is nothing to roll back in these tests.
type fakeRequestStore struct {
	mu       sync.Mutex
	events   map[string]*model.Event
	requests map[string]*model.Request
	seq      int
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{
		events:   map[string]*model.Event{},
		requests: map[string]*model.Request{},
	}
}

func (s *fakeRequestStore) putEvent(e *model.Event) {
	s.events[e.ID] = e
}

func (s *fakeRequestStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

func (s *fakeRequestStore) LockEvent(_ context.Context, eventID string) (*model.Event, error) {
	e, ok := s.events[eventID]
	if !ok {
		return nil, apperr.NotFound("event with id=%s was not found", eventID)
	}
	copied := *e
	return &copied, nil
}

func (s *fakeRequestStore) SetConfirmed(_ context.Context, eventID string, n int) error {
	e, ok := s.events[eventID]
	if !ok {
		return apperr.NotFound("event with id=%s was not found", eventID)
	}
	e.ConfirmedRequests = n
	return nil
}

func (s *fakeRequestStore) Insert(_ context.Context, req *model.Request) (*model.Request, error) {
	for _, existing := range s.requests {
		if existing.RequesterID == req.RequesterID &&
			existing.EventID == req.EventID &&
			existing.Status != model.RequestCanceled {
			return nil, apperr.Conflict(
				"user with id=%s already has an active request for event with id=%s", req.RequesterID, req.EventID)
		}
	}
	s.seq++
	req.ID = fmt.Sprintf("req-%d", s.seq)
	req.Created = model.NewDateTime(time.Now())
	stored := *req
	s.requests[req.ID] = &stored
	return req, nil
}

func (s *fakeRequestStore) GetByID(_ context.Context, id string) (*model.Request, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, apperr.NotFound("request with id=%s was not found", id)
	}
	copied := *req
	return &copied, nil
}

func (s *fakeRequestStore) GetByIDForUpdate(ctx context.Context, id string) (*model.Request, error) {
	return s.GetByID(ctx, id)
}

func (s *fakeRequestStore) GetByIDs(_ context.Context, ids []string) ([]model.Request, error) {
	var out []model.Request
	for _, id := range ids {
		if req, ok := s.requests[id]; ok {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (s *fakeRequestStore) UpdateStatus(_ context.Context, ids []string, status model.RequestStatus) error {
	for _, id := range ids {
		if req, ok := s.requests[id]; ok {
			req.Status = status
		}
	}
	return nil
}

func (s *fakeRequestStore) ListByRequester(_ context.Context, requesterID string) ([]model.Request, error) {
	var out []model.Request
	for _, req := range s.requests {
		if req.RequesterID == requesterID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (s *fakeRequestStore) ListByEvent(_ context.Context, eventID string) ([]model.Request, error) {
	var out []model.Request
	for _, req := range s.requests {
		if req.EventID == eventID {
			out = append(out, *req)
		}
	}
	return out, nil
}
