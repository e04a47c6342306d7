package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/venuepass/visitor-management/internal/admission"
	"github.com/venuepass/visitor-management/internal/model"
	"github.com/venuepass/visitor-management/internal/repository"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestDecisionErrorMapping(t *testing.T) {
	open := &model.Visit{ID: 7, PremiseID: 3, IDNumber: "A-100"}
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"open visit conflict", &admission.ConflictError{State: admission.AttentionRequired(open)}, http.StatusConflict},
		{"missing reason", admission.ErrReasonRequired, http.StatusBadRequest},
		{"already resolved", admission.ErrEntryResolved, http.StatusConflict},
		{"unknown entry", repository.ErrNotFound, http.StatusNotFound},
		{"visit already closed", sql.ErrNoRows, http.StatusConflict},
		{"conflict changed mid-decision", repository.ErrOpenVisit, http.StatusConflict},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	h := &AdmissionHandler{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(t)
			if err := h.decisionError(c, tc.err); err != nil {
				t.Fatalf("decisionError returned %v", err)
			}
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestDecisionErrorConflictCarriesState(t *testing.T) {
	open := &model.Visit{ID: 7, PremiseID: 3, IDNumber: "A-100"}
	h := &AdmissionHandler{}
	c, rec := newTestContext(t)

	err := h.decisionError(c, &admission.ConflictError{State: admission.AttentionRequired(open)})
	if err != nil {
		t.Fatalf("decisionError returned %v", err)
	}

	var body struct {
		State struct {
			Kind      string       `json:"kind"`
			OpenVisit *model.Visit `json:"open_visit"`
		} `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.State.Kind != string(admission.KindAttentionRequired) {
		t.Fatalf("kind = %q, want %q", body.State.Kind, admission.KindAttentionRequired)
	}
	if body.State.OpenVisit == nil || body.State.OpenVisit.ID != 7 {
		t.Fatalf("open visit not carried in conflict payload: %+v", body.State.OpenVisit)
	}
}
