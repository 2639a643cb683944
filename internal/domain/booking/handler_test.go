package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ayurcare/ayurcare/internal/domain/appointment"
	"github.com/ayurcare/ayurcare/internal/platform/apierr"
	"github.com/ayurcare/ayurcare/internal/platform/auth"
)

func newTestHandler(b Booker) (*Handler, *echo.Echo) {
	gate, _ := newTestGate()
	return NewHandler(NewWorkflow(b), gate), echo.New()
}

func newContext(e *echo.Echo, method, target, body string, p auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
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

var patient = auth.Principal{UserID: 20, Role: auth.RolePatient}

const formBody = `{"practitioner_id":10,"therapy_type":"Abhyanga","date":"2026-01-05","time":"10:00"}`

func TestHandler_Submit(t *testing.T) {
	b := &fakeBooker{}
	h, e := newTestHandler(b)
	c, rec := newContext(e, http.MethodPost, "/", formBody, patient)

	if err := h.Submit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if b.got.PatientID != 20 {
		t.Errorf("expected caller as patient, got %d", b.got.PatientID)
	}
}

func TestHandler_Submit_Validation(t *testing.T) {
	h, e := newTestHandler(&fakeBooker{})
	c, _ := newContext(e, http.MethodPost, "/", `{"therapy_type":"Abhyanga","date":"tomorrow","time":"10:00"}`, patient)
	expectHTTPError(t, h.Submit(c), http.StatusBadRequest, "validation_failed")
}

func TestHandler_Submit_OutsideAvailability(t *testing.T) {
	b := &fakeBooker{err: &appointment.WindowError{Err: appointment.ErrOutsideAvailability, PractitionerID: 10}}
	h, e := newTestHandler(b)
	c, _ := newContext(e, http.MethodPost, "/", formBody, patient)
	expectHTTPError(t, h.Submit(c), http.StatusUnprocessableEntity, "outside_availability")
}

func TestHandler_Submit_AdminNeedsPatient(t *testing.T) {
	b := &fakeBooker{}
	h, e := newTestHandler(b)
	admin := auth.Principal{UserID: 1, Role: auth.RoleAdmin}

	c, _ := newContext(e, http.MethodPost, "/", formBody, admin)
	expectHTTPError(t, h.Submit(c), http.StatusBadRequest, "bad_request")

	c, _ = newContext(e, http.MethodPost, "/?patient_id=33", formBody, admin)
	if err := h.Submit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.got.PatientID != 33 {
		t.Errorf("expected patient 33, got %d", b.got.PatientID)
	}
}

func TestHandler_Chat(t *testing.T) {
	h, e := newTestHandler(&fakeBooker{})

	c, rec := newContext(e, http.MethodGet, "/", "", patient)
	if err := h.CheckChat(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var d Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !d.Allowed || !d.ConsumesFreeConsultation {
		t.Errorf("unexpected decision: %+v", d)
	}

	c, rec = newContext(e, http.MethodPost, "/", "", patient)
	if err := h.StartChat(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	c, _ = newContext(e, http.MethodPost, "/", "", patient)
	expectHTTPError(t, h.StartChat(c), http.StatusForbidden, "feature_locked")
}

func TestHandler_ChatRoutes_PatientsOnly(t *testing.T) {
	gate, subs := newTestGate()
	h := NewHandler(NewWorkflow(&fakeBooker{}), gate)

	serve := func(method, path string, p auth.Principal) int {
		e := echo.New()
		e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				req := c.Request()
				c.SetRequest(req.WithContext(auth.WithPrincipal(req.Context(), p)))
				return next(c)
			}
		})
		h.RegisterRoutes(e.Group("/api/v1"))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec.Code
	}

	others := []auth.Principal{
		{UserID: 30, Role: auth.RolePractitioner},
		{UserID: 31, Role: auth.RoleAdmin},
	}
	for _, p := range others {
		if code := serve(http.MethodGet, "/api/v1/chat/access", p); code != http.StatusForbidden {
			t.Errorf("%s check: expected 403, got %d", p.Role, code)
		}
		if code := serve(http.MethodPost, "/api/v1/chat/sessions", p); code != http.StatusForbidden {
			t.Errorf("%s start: expected 403, got %d", p.Role, code)
		}
		r, err := subs.CheckStatus(context.Background(), p.UserID)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if !r.FreeConsultationAvailable {
			t.Errorf("%s must not consume a free consultation", p.Role)
		}
	}

	if code := serve(http.MethodPost, "/api/v1/chat/sessions", patient); code != http.StatusCreated {
		t.Errorf("patient start: expected 201, got %d", code)
	}
}
