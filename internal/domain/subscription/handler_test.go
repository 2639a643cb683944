package subscription

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ayurcare/ayurcare/internal/platform/apierr"
	"github.com/ayurcare/ayurcare/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func newContext(e *echo.Echo, method, target string, p *auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func expectHTTPError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	if he.Code != status {
		t.Errorf("expected status %d, got %d", status, he.Code)
	}
	if body, ok := he.Message.(apierr.Body); ok && body.Code != code {
		t.Errorf("expected code %q, got %q", code, body.Code)
	}
}

var patient = &auth.Principal{UserID: 5, Role: auth.RolePatient}

func TestHandler_GetStatus_None(t *testing.T) {
	h, e := newTestHandler()
	c, rec := newContext(e, http.MethodGet, "/", patient)

	if err := h.GetStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var r Report
	if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.State != StateNone || r.Subscription != nil {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestHandler_ActivateTrial(t *testing.T) {
	h, e := newTestHandler()
	c, rec := newContext(e, http.MethodPost, "/", patient)
	if err := h.ActivateTrial(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	c, _ = newContext(e, http.MethodPost, "/", patient)
	expectHTTPError(t, h.ActivateTrial(c), http.StatusConflict, "already_subscribed")
}

func TestHandler_ConsultUsedTwice(t *testing.T) {
	h, e := newTestHandler()
	c, _ := newContext(e, http.MethodPost, "/", patient)
	if err := h.MarkConsultationUsed(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ = newContext(e, http.MethodPost, "/", patient)
	expectHTTPError(t, h.MarkConsultationUsed(c), http.StatusConflict, "not_eligible")
}

func TestHandler_CancelWithoutPremium(t *testing.T) {
	h, e := newTestHandler()
	c, _ := newContext(e, http.MethodPost, "/", patient)
	expectHTTPError(t, h.Cancel(c), http.StatusNotFound, "not_found")
}

func TestHandler_UserIDOverride(t *testing.T) {
	h, e := newTestHandler()

	c, _ := newContext(e, http.MethodPost, "/?user_id=8", patient)
	expectHTTPError(t, h.Upgrade(c), http.StatusForbidden, "forbidden")

	admin := &auth.Principal{UserID: 1, Role: auth.RoleAdmin}
	c, rec := newContext(e, http.MethodPost, "/?user_id=8", admin)
	if err := h.Upgrade(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sub Subscription
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sub.UserID != 8 || sub.PlanType != PlanPremium {
		t.Errorf("unexpected subscription: %+v", sub)
	}

	c, _ = newContext(e, http.MethodGet, "/?user_id=abc", admin)
	expectHTTPError(t, h.GetStatus(c), http.StatusBadRequest, "bad_request")
}

func TestHandler_Unauthenticated(t *testing.T) {
	h, e := newTestHandler()
	c, _ := newContext(e, http.MethodGet, "/", nil)
	var he *echo.HTTPError
	if err := h.GetStatus(c); !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}
