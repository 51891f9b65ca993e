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

	"github.com/lockerhub/lockerhub-backend/api/middleware"
	"github.com/lockerhub/lockerhub-backend/internal/lockers"
	"github.com/lockerhub/lockerhub-backend/internal/unlock"
	"github.com/lockerhub/lockerhub-backend/pkg/enums"
	pkgerrors "github.com/lockerhub/lockerhub-backend/pkg/errors"
	"github.com/lockerhub/lockerhub-backend/pkg/types"
)

type stubLockerService struct {
	lockers      []lockers.LockerDTO
	locker       *lockers.LockerDTO
	deactivation *lockers.DeactivateResult
	err          error

	listedStatus *enums.LockerStatus
	gotID        uuid.UUID
	gotCreate    *lockers.CreateLockerRequest
	gotUpdate    *lockers.UpdateLockerRequest
}

func (s *stubLockerService) Create(ctx context.Context, req lockers.CreateLockerRequest) (*lockers.LockerDTO, error) {
	s.gotCreate = &req
	return s.locker, s.err
}

func (s *stubLockerService) List(ctx context.Context, status *enums.LockerStatus) ([]lockers.LockerDTO, error) {
	s.listedStatus = status
	return s.lockers, s.err
}

func (s *stubLockerService) ListAvailable(ctx context.Context) ([]lockers.LockerDTO, error) {
	return s.lockers, s.err
}

func (s *stubLockerService) Get(ctx context.Context, id uuid.UUID) (*lockers.LockerDTO, error) {
	s.gotID = id
	return s.locker, s.err
}

func (s *stubLockerService) Update(ctx context.Context, id uuid.UUID, req lockers.UpdateLockerRequest) (*lockers.LockerDTO, error) {
	s.gotID = id
	s.gotUpdate = &req
	return s.locker, s.err
}

func (s *stubLockerService) Deactivate(ctx context.Context, id uuid.UUID) (*lockers.DeactivateResult, error) {
	s.gotID = id
	return s.deactivation, s.err
}

func (s *stubLockerService) Reactivate(ctx context.Context, id uuid.UUID) (*lockers.LockerDTO, error) {
	s.gotID = id
	return s.locker, s.err
}

type stubUnlockService struct {
	result   *unlock.UnlockResult
	err      error
	gotActor types.Actor
	gotReq   *unlock.UnlockRequest
}

func (s *stubUnlockService) Unlock(ctx context.Context, actor types.Actor, req unlock.UnlockRequest) (*unlock.UnlockResult, error) {
	s.gotActor = actor
	s.gotReq = &req
	return s.result, s.err
}

func withLockerID(req *http.Request, id string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("lockerId", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func withActor(req *http.Request, userID uuid.UUID, isAdmin bool) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithIsAdmin(ctx, isAdmin)
	return req.WithContext(ctx)
}

func testLockerDTO() *lockers.LockerDTO {
	now := time.Now().UTC()
	return &lockers.LockerDTO{
		ID:           uuid.New(),
		LockerNumber: "A-101",
		Location:     "north wing",
		Status:       enums.LockerStatusAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestListLockersStatusFilter(t *testing.T) {
	svc := &stubLockerService{lockers: []lockers.LockerDTO{*testLockerDTO()}}
	handler := ListLockers(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lockers?status=reserved", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.listedStatus == nil || *svc.listedStatus != enums.LockerStatusReserved {
		t.Fatalf("expected reserved filter forwarded got %v", svc.listedStatus)
	}
}

func TestListLockersNoFilter(t *testing.T) {
	svc := &stubLockerService{}
	handler := ListLockers(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lockers", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.listedStatus != nil {
		t.Fatalf("expected no filter got %v", *svc.listedStatus)
	}
}

func TestListLockersInvalidFilter(t *testing.T) {
	handler := ListLockers(&stubLockerService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lockers?status=bogus", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetLockerInvalidID(t *testing.T) {
	handler := GetLocker(&stubLockerService{}, nil)

	req := withLockerID(httptest.NewRequest(http.MethodGet, "/api/v1/lockers/nope", nil), "nope")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetLockerNotFound(t *testing.T) {
	svc := &stubLockerService{err: pkgerrors.New(pkgerrors.CodeNotFound, "locker not found")}
	handler := GetLocker(svc, nil)

	id := uuid.New()
	req := withLockerID(httptest.NewRequest(http.MethodGet, "/api/v1/lockers/"+id.String(), nil), id.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	if svc.gotID != id {
		t.Fatalf("expected lookup for %s got %s", id, svc.gotID)
	}
}

func TestCreateLocker(t *testing.T) {
	svc := &stubLockerService{locker: testLockerDTO()}
	handler := CreateLocker(svc, nil)

	body := bytes.NewReader([]byte(`{"locker_number":"A-101","location":"north wing"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lockers", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if svc.gotCreate == nil || svc.gotCreate.LockerNumber != "A-101" {
		t.Fatalf("expected create request forwarded got %+v", svc.gotCreate)
	}

	var envelope struct {
		Data *lockers.LockerDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data == nil || envelope.Data.LockerNumber != "A-101" {
		t.Fatalf("expected locker in payload got %+v", envelope.Data)
	}
}

func TestCreateLockerMissingNumber(t *testing.T) {
	handler := CreateLocker(&stubLockerService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lockers", bytes.NewReader([]byte(`{"location":"north wing"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUpdateLocker(t *testing.T) {
	svc := &stubLockerService{locker: testLockerDTO()}
	handler := UpdateLocker(svc, nil)

	id := uuid.New()
	body := bytes.NewReader([]byte(`{"location":"south wing"}`))
	req := withLockerID(httptest.NewRequest(http.MethodPatch, "/api/v1/lockers/"+id.String(), body), id.String())
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.gotUpdate == nil || svc.gotUpdate.Location == nil || *svc.gotUpdate.Location != "south wing" {
		t.Fatalf("expected partial update forwarded got %+v", svc.gotUpdate)
	}
	if svc.gotUpdate.LockerNumber != nil {
		t.Fatalf("expected locker number untouched got %v", *svc.gotUpdate.LockerNumber)
	}
}

func TestDeactivateLocker(t *testing.T) {
	dto := testLockerDTO()
	dto.Status = enums.LockerStatusInactive
	svc := &stubLockerService{deactivation: &lockers.DeactivateResult{
		Locker:        *dto,
		ReleasedCount: 1,
		Released: []lockers.ReleasedReservationDTO{{
			ID:            uuid.New(),
			UserID:        uuid.New(),
			ReservedUntil: time.Now().UTC().Add(time.Hour),
		}},
	}}
	handler := DeactivateLocker(svc, nil)

	id := uuid.New()
	req := withLockerID(httptest.NewRequest(http.MethodDelete, "/api/v1/lockers/"+id.String(), nil), id.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data *lockers.DeactivateResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data == nil || envelope.Data.ReleasedCount != 1 {
		t.Fatalf("expected released reservations in payload got %+v", envelope.Data)
	}
}

func TestReactivateLockerStateConflict(t *testing.T) {
	svc := &stubLockerService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "locker is already available")}
	handler := ReactivateLocker(svc, nil)

	id := uuid.New()
	req := withLockerID(httptest.NewRequest(http.MethodPost, "/api/v1/lockers/"+id.String()+"/reactivate", nil), id.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestUnlockLocker(t *testing.T) {
	userID := uuid.New()
	svc := &stubUnlockService{result: &unlock.UnlockResult{
		Locker:        *testLockerDTO(),
		ReservationID: uuid.New(),
		OwnerID:       userID,
		ReservedUntil: time.Now().UTC().Add(time.Hour),
		AccessedBy:    enums.ActorRoleUser,
	}}
	handler := UnlockLocker(svc, nil)

	body := bytes.NewReader([]byte(`{"locker_number":"A-101","pin":"123456"}`))
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/lockers/unlock", body), userID, false)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.gotActor.UserID != userID || svc.gotActor.IsAdmin {
		t.Fatalf("expected caller identity forwarded got %+v", svc.gotActor)
	}
	if svc.gotReq == nil || svc.gotReq.PIN != "123456" {
		t.Fatalf("expected unlock request forwarded got %+v", svc.gotReq)
	}
}

func TestUnlockLockerMissingActor(t *testing.T) {
	handler := UnlockLocker(&stubUnlockService{}, nil)

	body := bytes.NewReader([]byte(`{"locker_number":"A-101","pin":"123456"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lockers/unlock", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestUnlockLockerShortPIN(t *testing.T) {
	handler := UnlockLocker(&stubUnlockService{}, nil)

	body := bytes.NewReader([]byte(`{"locker_number":"A-101","pin":"123"}`))
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/lockers/unlock", body), uuid.New(), false)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
