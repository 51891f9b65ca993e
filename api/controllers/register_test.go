package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lockerhub/lockerhub-backend/internal/auth"
	"github.com/lockerhub/lockerhub-backend/internal/users"
	pkgerrors "github.com/lockerhub/lockerhub-backend/pkg/errors"
)

type stubRegisterService struct {
	user *users.UserDTO
	err  error
	got  *auth.RegisterRequest
}

func (s *stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	s.got = &req
	return s.user, s.err
}

type stubAdminRegisterService struct {
	user *users.UserDTO
	err  error
}

func (s *stubAdminRegisterService) Register(ctx context.Context, req auth.AdminRegisterRequest) (*users.UserDTO, error) {
	return s.user, s.err
}

func TestAuthRegisterSuccess(t *testing.T) {
	user := testUserDTO()
	reg := &stubRegisterService{user: user}
	login := &stubAuthService{resp: &auth.LoginResponse{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		User:         user,
	}}
	handler := AuthRegister(reg, login, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(`{"username":"casey","email":"casey@example.com","password":"Secret#123"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-LH-Token"); got != "access-token" {
		t.Fatalf("expected x-lh-token header set to access-token got %s", got)
	}
	if reg.got == nil || reg.got.Username != "casey" {
		t.Fatalf("expected register request forwarded got %+v", reg.got)
	}
	if login.got == nil || login.got.Username != "casey" || login.got.Password != "Secret#123" {
		t.Fatalf("expected auto-login with registration credentials got %+v", login.got)
	}

	var envelope struct {
		Data struct {
			AccessToken string         `json:"access_token"`
			User        *users.UserDTO `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.User == nil || envelope.Data.User.Username != user.Username {
		t.Fatalf("expected user in payload got %+v", envelope.Data.User)
	}
}

func TestAuthRegisterInvalidPayload(t *testing.T) {
	handler := AuthRegister(&stubRegisterService{}, &stubAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(`{"username":"casey"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthRegisterDuplicateUsername(t *testing.T) {
	reg := &stubRegisterService{err: pkgerrors.New(pkgerrors.CodeConflict, "username already taken")}
	login := &stubAuthService{}
	handler := AuthRegister(reg, login, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(`{"username":"casey","email":"casey@example.com","password":"Secret#123"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if login.got != nil {
		t.Fatal("expected no login attempt after failed registration")
	}
}

func TestAdminAuthRegisterSuccess(t *testing.T) {
	user := testUserDTO()
	user.IsAdmin = true
	handler := AdminAuthRegister(&stubAdminRegisterService{user: user}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/register", bytes.NewReader([]byte(`{"username":"root","email":"root@example.com","password":"Secret#123"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data *users.UserDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data == nil || !envelope.Data.IsAdmin {
		t.Fatalf("expected admin user in payload got %+v", envelope.Data)
	}
}

func TestAdminAuthRegisterNilService(t *testing.T) {
	handler := AdminAuthRegister(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/register", bytes.NewReader([]byte(`{"username":"root","email":"root@example.com","password":"Secret#123"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
