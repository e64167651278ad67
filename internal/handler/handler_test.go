package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-karpukhin/event-board/internal/apperr"
	"github.com/d-karpukhin/event-board/internal/model"
	"github.com/d-karpukhin/event-board/internal/service"
)

// stubEventStore serves canned events and captures search criteria.
type stubEventStore struct {
	events       map[string]*model.Event
	searchResult []model.Event
	lastPublic   model.PublicCriteria
	lastAdmin    model.AdminCriteria
	lastPage     model.Page
}

func newStubEventStore() *stubEventStore {
	return &stubEventStore{events: map[string]*model.Event{}}
}

func (s *stubEventStore) Create(_ context.Context, e *model.Event) (*model.Event, error) {
	e.ID = "ev-created"
	e.CreatedOn = model.NewDateTime(time.Now())
	s.events[e.ID] = e
	return e, nil
}

func (s *stubEventStore) Update(_ context.Context, e *model.Event) (*model.Event, error) {
	s.events[e.ID] = e
	return e, nil
}

func (s *stubEventStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, apperr.NotFound("event with id=%s was not found", id)
	}
	copied := *e
	return &copied, nil
}

func (s *stubEventStore) GetByIDAndInitiator(ctx context.Context, id, initiatorID string) (*model.Event, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil || e.InitiatorID != initiatorID {
		return nil, apperr.NotFound("event with id=%s was not found", id)
	}
	return e, nil
}

func (s *stubEventStore) GetByIDIfPublished(ctx context.Context, id string) (*model.Event, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil || e.State != model.EventPublished {
		return nil, apperr.NotFound("event with id=%s was not found", id)
	}
	return e, nil
}

func (s *stubEventStore) ListByInitiator(_ context.Context, _ string, _ model.Page) ([]model.Event, error) {
	return s.searchResult, nil
}

func (s *stubEventStore) SearchPublic(_ context.Context, c model.PublicCriteria, page model.Page) ([]model.Event, error) {
	s.lastPublic, s.lastPage = c, page
	return s.searchResult, nil
}

func (s *stubEventStore) SearchAdmin(_ context.Context, c model.AdminCriteria, page model.Page) ([]model.Event, error) {
	s.lastAdmin, s.lastPage = c, page
	return s.searchResult, nil
}

// stubDirectory accepts every user and category id it was seeded with.
type stubDirectory struct {
	users      map[string]bool
	categories map[string]bool
}

func newStubDirectory(users, categories []string) *stubDirectory {
	d := &stubDirectory{users: map[string]bool{}, categories: map[string]bool{}}
	for _, id := range users {
		d.users[id] = true
	}
	for _, id := range categories {
		d.categories[id] = true
	}
	return d
}

func (d *stubDirectory) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if !d.users[id] {
		return nil, apperr.NotFound("user with id=%s was not found", id)
	}
	return &model.User{ID: id}, nil
}

func (d *stubDirectory) GetCategoryByID(_ context.Context, id string) (*model.Category, error) {
	if !d.categories[id] {
		return nil, apperr.NotFound("category with id=%s was not found", id)
	}
	return &model.Category{ID: id}, nil
}

// nopCounter satisfies the view counter without an external collector.
type nopCounter struct{}

func (nopCounter) RecordHit(context.Context, string, string) {}

func (nopCounter) Counts(context.Context, time.Time, time.Time, []string, bool) (map[string]int64, error) {
	return map[string]int64{}, nil
}

// stubRequestStore is a minimal in-memory ledger.
type stubRequestStore struct {
	events   map[string]*model.Event
	requests map[string]*model.Request
	seq      int
}

func newStubRequestStore() *stubRequestStore {
	return &stubRequestStore{events: map[string]*model.Event{}, requests: map[string]*model.Request{}}
}

func (s *stubRequestStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *stubRequestStore) LockEvent(_ context.Context, eventID string) (*model.Event, error) {
	e, ok := s.events[eventID]
	if !ok {
		return nil, apperr.NotFound("event with id=%s was not found", eventID)
	}
	copied := *e
	return &copied, nil
}

func (s *stubRequestStore) SetConfirmed(_ context.Context, eventID string, n int) error {
	s.events[eventID].ConfirmedRequests = n
	return nil
}

func (s *stubRequestStore) Insert(_ context.Context, req *model.Request) (*model.Request, error) {
	s.seq++
	req.ID = "req-1"
	req.Created = model.NewDateTime(time.Now())
	stored := *req
	s.requests[req.ID] = &stored
	return req, nil
}

func (s *stubRequestStore) GetByID(_ context.Context, id string) (*model.Request, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, apperr.NotFound("request with id=%s was not found", id)
	}
	copied := *req
	return &copied, nil
}

func (s *stubRequestStore) GetByIDForUpdate(ctx context.Context, id string) (*model.Request, error) {
	return s.GetByID(ctx, id)
}

func (s *stubRequestStore) GetByIDs(_ context.Context, ids []string) ([]model.Request, error) {
	var out []model.Request
	for _, id := range ids {
		if req, ok := s.requests[id]; ok {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (s *stubRequestStore) UpdateStatus(_ context.Context, ids []string, status model.RequestStatus) error {
	for _, id := range ids {
		if req, ok := s.requests[id]; ok {
			req.Status = status
		}
	}
	return nil
}

func (s *stubRequestStore) ListByRequester(_ context.Context, requesterID string) ([]model.Request, error) {
	var out []model.Request
	for _, req := range s.requests {
		if req.RequesterID == requesterID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (s *stubRequestStore) ListByEvent(_ context.Context, eventID string) ([]model.Request, error) {
	var out []model.Request
	for _, req := range s.requests {
		if req.EventID == eventID {
			out = append(out, *req)
		}
	}
	return out, nil
}

type fixture struct {
	router   *chi.Mux
	events   *stubEventStore
	requests *stubRequestStore
}

// newFixture wires the stub stores through real services into a router with
// the production route layout.
func newFixture(users, categories []string) *fixture {
	events := newStubEventStore()
	requests := newStubRequestStore()
	dir := newStubDirectory(users, categories)

	eventSvc := service.NewEventService(events, dir, nopCounter{})
	requestSvc := service.NewRequestService(requests, events, dir)

	eventHandler := NewEventHandler(eventSvc)
	requestHandler := NewRequestHandler(requestSvc)

	r := chi.NewRouter()
	r.Get("/events", eventHandler.SearchPublic)
	r.Get("/events/{id}", eventHandler.GetPublic)
	r.Route("/users/{userId}", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Post("/", eventHandler.Create)
			r.Get("/", eventHandler.ListByOwner)
			r.Get("/{eventId}", eventHandler.GetByOwner)
			r.Patch("/{eventId}", eventHandler.UpdateByOwner)
			r.Get("/{eventId}/requests", requestHandler.ListByEventOwner)
			r.Patch("/{eventId}/requests", requestHandler.BatchDecide)
		})
		r.Route("/requests", func(r chi.Router) {
			r.Post("/", requestHandler.Submit)
			r.Get("/", requestHandler.ListByRequester)
			r.Patch("/{requestId}/cancel", requestHandler.Cancel)
		})
	})
	r.Route("/admin/events", func(r chi.Router) {
		r.Get("/", eventHandler.SearchAdmin)
		r.Patch("/{eventId}", eventHandler.UpdateByAdmin)
	})

	return &fixture{router: r, events: events, requests: requests}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "10.0.0.1:52000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func seedPublished(f *fixture, id, initiatorID string, limit int, moderation bool) {
	publishedOn := model.NewDateTime(time.Now().Add(-time.Hour))
	e := &model.Event{
		ID:                id,
		Title:             "city marathon",
		InitiatorID:       initiatorID,
		EventDate:         model.NewDateTime(time.Now().Add(72 * time.Hour)),
		State:             model.EventPublished,
		ParticipantLimit:  limit,
		RequestModeration: moderation,
		PublishedOn:       &publishedOn,
	}
	f.events.events[id] = e
	ledger := *e
	f.requests.events[id] = &ledger
}

func TestGetPublicUnpublishedReturns404(t *testing.T) {
	f := newFixture(nil, nil)
	f.events.events["ev1"] = &model.Event{ID: "ev1", State: model.EventPending}

	rec := f.do(t, http.MethodGet, "/events/ev1", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
}

func TestGetPublicPublishedReturns200(t *testing.T) {
	f := newFixture(nil, nil)
	seedPublished(f, "ev1", "owner", 10, true)

	rec := f.do(t, http.MethodGet, "/events/ev1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var event model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	assert.Equal(t, "ev1", event.ID)
}

func TestSearchPublicInvalidRangeReturns400(t *testing.T) {
	f := newFixture(nil, nil)

	rec := f.do(t, http.MethodGet,
		"/events?rangeStart=2026-03-10%2012:00:00&rangeEnd=2026-03-09%2012:00:00", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchPublicEmptyResultIsArray(t *testing.T) {
	f := newFixture(nil, nil)

	rec := f.do(t, http.MethodGet, "/events", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestSearchPublicTranslatesQueryParams(t *testing.T) {
	f := newFixture(nil, nil)

	rec := f.do(t, http.MethodGet,
		"/events?text=run&categories=cat1,cat2&paid=true&onlyAvailable=true&sort=EVENT_DATE&from=20&size=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run", f.events.lastPublic.Text)
	assert.Equal(t, []string{"cat1", "cat2"}, f.events.lastPublic.CategoryIDs)
	require.NotNil(t, f.events.lastPublic.Paid)
	assert.True(t, *f.events.lastPublic.Paid)
	assert.True(t, f.events.lastPublic.OnlyAvailable)
	assert.Equal(t, model.SortByEventDate, f.events.lastPublic.Sort)
	assert.Equal(t, model.Page{From: 20, Size: 5}, f.events.lastPage)
}

func TestSearchPublicDefaultPage(t *testing.T) {
	f := newFixture(nil, nil)

	rec := f.do(t, http.MethodGet, "/events", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Page{From: 0, Size: 10}, f.events.lastPage)
}

func TestSearchPublicRejectsBadPagination(t *testing.T) {
	f := newFixture(nil, nil)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/events?from=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/events?size=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/events?from=abc", "").Code)
}

func TestCreateEventReturns201(t *testing.T) {
	f := newFixture([]string{"owner"}, []string{"cat1"})

	eventDate := model.NewDateTime(time.Now().Add(72 * time.Hour)).String()
	body := `{
		"title": "city marathon",
		"annotation": "a 42km run through the old town center",
		"description": "annual spring marathon with a capped field of runners",
		"category": "cat1",
		"eventDate": "` + eventDate + `",
		"location": {"lat": 55.75, "lon": 37.62},
		"paid": true,
		"participantLimit": 100
	}`
	rec := f.do(t, http.MethodPost, "/users/owner/events", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var event model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	assert.Equal(t, "PENDING", string(event.State))
}

func TestCreateEventRejectsMalformedBody(t *testing.T) {
	f := newFixture([]string{"owner"}, []string{"cat1"})

	rec := f.do(t, http.MethodPost, "/users/owner/events", `{"title": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEventRejectsUnknownFields(t *testing.T) {
	f := newFixture([]string{"owner"}, []string{"cat1"})

	rec := f.do(t, http.MethodPost, "/users/owner/events", `{"titel": "typo"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateByOwnerForeignEventReturns403(t *testing.T) {
	f := newFixture([]string{"bob"}, nil)
	f.events.events["ev1"] = &model.Event{ID: "ev1", InitiatorID: "owner", State: model.EventPending}

	rec := f.do(t, http.MethodPatch, "/users/bob/events/ev1", `{"paid": true}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateByOwnerPublishedReturns409(t *testing.T) {
	f := newFixture([]string{"owner"}, nil)
	seedPublished(f, "ev1", "owner", 10, true)

	rec := f.do(t, http.MethodPatch, "/users/owner/events/ev1", `{"paid": true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminPublishPendingReturns200(t *testing.T) {
	f := newFixture(nil, nil)
	f.events.events["ev1"] = &model.Event{ID: "ev1", InitiatorID: "owner", State: model.EventPending}

	rec := f.do(t, http.MethodPatch, "/admin/events/ev1", `{"stateAction": "PUBLISH_EVENT"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var event model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	assert.Equal(t, "PUBLISHED", string(event.State))
	assert.NotNil(t, event.PublishedOn)
}

func TestAdminPublishCanceledReturns409(t *testing.T) {
	f := newFixture(nil, nil)
	f.events.events["ev1"] = &model.Event{ID: "ev1", InitiatorID: "owner", State: model.EventCanceled}

	rec := f.do(t, http.MethodPatch, "/admin/events/ev1", `{"stateAction": "PUBLISH_EVENT"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminSearchTranslatesQueryParams(t *testing.T) {
	f := newFixture(nil, nil)

	rec := f.do(t, http.MethodGet, "/admin/events?users=u1,u2&states=PENDING&categories=cat1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"u1", "u2"}, f.events.lastAdmin.InitiatorIDs)
	assert.Equal(t, []model.EventState{model.EventPending}, f.events.lastAdmin.States)
	assert.Equal(t, []string{"cat1"}, f.events.lastAdmin.CategoryIDs)
}

func TestSubmitRequiresEventID(t *testing.T) {
	f := newFixture([]string{"alice"}, nil)

	rec := f.do(t, http.MethodPost, "/users/alice/requests", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitReturns201(t *testing.T) {
	f := newFixture([]string{"alice"}, nil)
	seedPublished(f, "ev1", "owner", 10, true)

	rec := f.do(t, http.MethodPost, "/users/alice/requests?eventId=ev1", "")

	assert.Equal(t, http.StatusCreated, rec.Code)
	var request model.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &request))
	assert.Equal(t, "PENDING", string(request.Status))
}

func TestSubmitOwnEventReturns409(t *testing.T) {
	f := newFixture([]string{"owner"}, nil)
	seedPublished(f, "ev1", "owner", 10, true)

	rec := f.do(t, http.MethodPost, "/users/owner/requests?eventId=ev1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitUnknownUserReturns404(t *testing.T) {
	f := newFixture(nil, nil)
	seedPublished(f, "ev1", "owner", 10, true)

	rec := f.do(t, http.MethodPost, "/users/ghost/requests?eventId=ev1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelReturns200(t *testing.T) {
	f := newFixture([]string{"alice"}, nil)
	seedPublished(f, "ev1", "owner", 10, true)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/users/alice/requests?eventId=ev1", "").Code)

	rec := f.do(t, http.MethodPatch, "/users/alice/requests/req-1/cancel", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var request model.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &request))
	assert.Equal(t, "CANCELED", string(request.Status))
}

func TestListRequestsEmptyIsArray(t *testing.T) {
	f := newFixture([]string{"alice"}, nil)

	rec := f.do(t, http.MethodGet, "/users/alice/requests", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestBatchDecideInvalidStatusReturns400(t *testing.T) {
	f := newFixture([]string{"owner"}, nil)
	seedPublished(f, "ev1", "owner", 10, true)

	rec := f.do(t, http.MethodPatch, "/users/owner/events/ev1/requests",
		`{"requestIds": ["r1"], "status": "APPROVED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchDecideForeignEventReturns403(t *testing.T) {
	f := newFixture([]string{"bob"}, nil)
	seedPublished(f, "ev1", "owner", 10, true)

	rec := f.do(t, http.MethodPatch, "/users/bob/events/ev1/requests",
		`{"requestIds": ["r1"], "status": "CONFIRMED"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
