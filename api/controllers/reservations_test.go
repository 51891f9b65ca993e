package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lockerhub/lockerhub-backend/internal/reservations"
	"github.com/lockerhub/lockerhub-backend/pkg/enums"
	pkgerrors "github.com/lockerhub/lockerhub-backend/pkg/errors"
	"github.com/lockerhub/lockerhub-backend/pkg/types"
)

type stubReservationService struct {
	reservation *reservations.ReservationDTO
	list        []reservations.ReservationDTO
	release     *reservations.ReleaseResult
	err         error

	gotActor  types.Actor
	gotID     uuid.UUID
	gotCreate *reservations.CreateReservationRequest
	gotExpiry *reservations.UpdateExpiryRequest
	calledAll bool
}

func (s *stubReservationService) Create(ctx context.Context, actor types.Actor, req reservations.CreateReservationRequest) (*reservations.ReservationDTO, error) {
	s.gotActor = actor
	s.gotCreate = &req
	return s.reservation, s.err
}

func (s *stubReservationService) Release(ctx context.Context, id uuid.UUID, actor types.Actor) (*reservations.ReleaseResult, error) {
	s.gotID = id
	s.gotActor = actor
	return s.release, s.err
}

func (s *stubReservationService) UpdateExpiry(ctx context.Context, id uuid.UUID, actor types.Actor, req reservations.UpdateExpiryRequest) (*reservations.ReservationDTO, error) {
	s.gotID = id
	s.gotActor = actor
	s.gotExpiry = &req
	return s.reservation, s.err
}

func (s *stubReservationService) ListForCaller(ctx context.Context, actor types.Actor) ([]reservations.ReservationDTO, error) {
	s.gotActor = actor
	return s.list, s.err
}

func (s *stubReservationService) ListActive(ctx context.Context, actor types.Actor) ([]reservations.ReservationDTO, error) {
	s.gotActor = actor
	return s.list, s.err
}

func (s *stubReservationService) ListAll(ctx context.Context) ([]reservations.ReservationDTO, error) {
	s.calledAll = true
	return s.list, s.err
}

func (s *stubReservationService) Get(ctx context.Context, id uuid.UUID, actor types.Actor) (*reservations.ReservationDTO, error) {
	s.gotID = id
	s.gotActor = actor
	return s.reservation, s.err
}

func withReservationID(req *http.Request, id string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("reservationId", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func testReservationDTO(userID uuid.UUID, pin string) *reservations.ReservationDTO {
	now := time.Now().UTC()
	return &reservations.ReservationDTO{
		ID:            uuid.New(),
		UserID:        userID,
		LockerID:      uuid.New(),
		LockerNumber:  "A-101",
		ReservedAt:    now,
		ReservedUntil: now.Add(2 * time.Hour),
		IsActive:      true,
		AccessPIN:     pin,
	}
}

func TestCreateReservation(t *testing.T) {
	userID := uuid.New()
	svc := &stubReservationService{reservation: testReservationDTO(userID, "123456")}
	handler := CreateReservation(svc, nil)

	until := time.Now().UTC().Add(2 * time.Hour).Format(time.RFC3339)
	payload := `{"locker_id":"` + svc.reservation.LockerID.String() + `","reserved_until":"` + until + `"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/reservations", bytes.NewReader([]byte(payload))), userID, false)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if svc.gotActor.UserID != userID {
		t.Fatalf("expected caller identity forwarded got %+v", svc.gotActor)
	}
	if svc.gotCreate == nil || svc.gotCreate.LockerID != svc.reservation.LockerID {
		t.Fatalf("expected create request forwarded got %+v", svc.gotCreate)
	}

	var envelope struct {
		Data *reservations.ReservationDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data == nil || envelope.Data.AccessPIN != "123456" {
		t.Fatalf("expected access pin in create payload got %+v", envelope.Data)
	}
}

func TestCreateReservationMissingActor(t *testing.T) {
	handler := CreateReservation(&stubReservationService{}, nil)

	payload := `{"locker_id":"` + uuid.NewString() + `","reserved_until":"2027-01-01T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestCreateReservationMissingExpiry(t *testing.T) {
	handler := CreateReservation(&stubReservationService{}, nil)

	payload := `{"locker_id":"` + uuid.NewString() + `"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/reservations", bytes.NewReader([]byte(payload))), uuid.New(), false)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestListReservationsForwardsActor(t *testing.T) {
	userID := uuid.New()
	svc := &stubReservationService{list: []reservations.ReservationDTO{*testReservationDTO(userID, "")}}
	handler := ListReservations(svc, nil)

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil), userID, true)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.gotActor.UserID != userID || !svc.gotActor.IsAdmin {
		t.Fatalf("expected admin actor forwarded got %+v", svc.gotActor)
	}

	var envelope struct {
		Data []reservations.ReservationDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("expected one reservation got %d", len(envelope.Data))
	}
	if envelope.Data[0].AccessPIN != "" {
		t.Fatal("expected pin omitted from list payload")
	}
}

func TestListAllReservations(t *testing.T) {
	svc := &stubReservationService{list: []reservations.ReservationDTO{}}
	handler := ListAllReservations(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations/all", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !svc.calledAll {
		t.Fatal("expected full listing invoked")
	}
}

func TestGetReservationForbidden(t *testing.T) {
	svc := &stubReservationService{err: pkgerrors.New(pkgerrors.CodeForbidden, "you can only view your own reservations")}
	handler := GetReservation(svc, nil)

	id := uuid.New()
	req := withReservationID(httptest.NewRequest(http.MethodGet, "/api/v1/reservations/"+id.String(), nil), id.String())
	req = withActor(req, uuid.New(), false)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestReleaseReservation(t *testing.T) {
	userID := uuid.New()
	released := testReservationDTO(userID, "")
	released.IsActive = false
	svc := &stubReservationService{release: &reservations.ReleaseResult{
		Reservation: *released,
		ReleasedBy:  enums.ActorRoleUser,
	}}
	handler := ReleaseReservation(svc, nil)

	req := withReservationID(httptest.NewRequest(http.MethodPut, "/api/v1/reservations/"+released.ID.String()+"/release", nil), released.ID.String())
	req = withActor(req, userID, false)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.gotID != released.ID {
		t.Fatalf("expected release of %s got %s", released.ID, svc.gotID)
	}

	var envelope struct {
		Data *reservations.ReleaseResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data == nil || envelope.Data.ReleasedBy != enums.ActorRoleUser {
		t.Fatalf("expected releasing role in payload got %+v", envelope.Data)
	}
}

func TestReleaseReservationAlreadyReleased(t *testing.T) {
	svc := &stubReservationService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "reservation already released")}
	handler := ReleaseReservation(svc, nil)

	id := uuid.New()
	req := withReservationID(httptest.NewRequest(http.MethodPut, "/api/v1/reservations/"+id.String()+"/release", nil), id.String())
	req = withActor(req, uuid.New(), false)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestUpdateReservationExpiry(t *testing.T) {
	adminID := uuid.New()
	svc := &stubReservationService{reservation: testReservationDTO(uuid.New(), "")}
	handler := UpdateReservationExpiry(svc, nil)

	id := uuid.New()
	until := time.Now().UTC().Add(4 * time.Hour).Format(time.RFC3339)
	body := bytes.NewReader([]byte(`{"reserved_until":"` + until + `"}`))
	req := withReservationID(httptest.NewRequest(http.MethodPatch, "/api/v1/reservations/"+id.String(), body), id.String())
	req = withActor(req, adminID, true)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.gotExpiry == nil || svc.gotExpiry.ReservedUntil.IsZero() {
		t.Fatalf("expected expiry payload forwarded got %+v", svc.gotExpiry)
	}
	if !svc.gotActor.IsAdmin {
		t.Fatalf("expected admin actor forwarded got %+v", svc.gotActor)
	}
}

func TestUpdateReservationExpiryInvalidID(t *testing.T) {
	handler := UpdateReservationExpiry(&stubReservationService{}, nil)

	body := bytes.NewReader([]byte(`{"reserved_until":"2027-01-01T00:00:00Z"}`))
	req := withReservationID(httptest.NewRequest(http.MethodPatch, "/api/v1/reservations/nope", body), "nope")
	req = withActor(req, uuid.New(), true)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
