package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/venuepass/visitor-management/internal/admission"
	"github.com/venuepass/visitor-management/internal/model"
	"github.com/venuepass/visitor-management/internal/repository"
)

// AdmissionHandler serves the staff dashboard: pending entries, the
// review verdict for one entry, the decision actions and the visit log
// with manual check-out.
type AdmissionHandler struct {
	Engine   *admission.Engine
	Premises *repository.PremiseRepo
	Entries  *repository.EntryRepo
	Visits   *repository.VisitRepo
}

func NewAdmissionHandler(engine *admission.Engine, p *repository.PremiseRepo, e *repository.EntryRepo, v *repository.VisitRepo) *AdmissionHandler {
	return &AdmissionHandler{Engine: engine, Premises: p, Entries: e, Visits: v}
}

type denyReq struct {
	Reason string `json:"reason"`
}
type resolveApproveReq struct {
	CheckoutReason string `json:"checkout_reason"`
}
type resolveDenyReq struct {
	CheckoutReason string `json:"checkout_reason"`
	DenyReason     string `json:"deny_reason"`
}
type checkoutReq struct {
	Reason string `json:"reason"`
}

// ownedPremise enforces that the caller's account owns the premise.  On
// failure the response is already written and ok is false.
func (h *AdmissionHandler) ownedPremise(c echo.Context, ctx context.Context, premiseID uint64) (model.Premise, bool) {
	uid, err := getUserID(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return model.Premise{}, false
	}
	p, err := h.Premises.GetOwned(ctx, premiseID, uid)
	switch err {
	case nil:
		return p, true
	case repository.ErrNotFound:
		_ = c.JSON(http.StatusNotFound, echo.Map{"error": "premise not found"})
	case repository.ErrForbidden:
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return model.Premise{}, false
}

// ownedEntry loads the entry and enforces ownership through its premise.
func (h *AdmissionHandler) ownedEntry(c echo.Context, ctx context.Context) (model.PendingEntry, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
		return model.PendingEntry{}, false
	}
	entry, err := h.Entries.GetByID(ctx, id)
	if err != nil {
		_ = c.JSON(http.StatusNotFound, echo.Map{"error": "entry not found"})
		return model.PendingEntry{}, false
	}
	if _, ok := h.ownedPremise(c, ctx, entry.PremiseID); !ok {
		return model.PendingEntry{}, false
	}
	return entry, true
}

// ListEntries returns the premise's entries, optionally filtered with
// ?status=PENDING|DENIED.
func (h *AdmissionHandler) ListEntries(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid premise id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, ok := h.ownedPremise(c, ctx, id); !ok {
		return nil
	}
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	if status != "" && status != model.EntryStatusPending && status != model.EntryStatusDenied {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	entries, err := h.Entries.ListByPremise(ctx, id, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}

// ListVisits returns the premise's visit log; ?open=true narrows it to
// visits still on the premises.
func (h *AdmissionHandler) ListVisits(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid premise id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, ok := h.ownedPremise(c, ctx, id); !ok {
		return nil
	}
	openOnly := c.QueryParam("open") == "true"
	visits, err := h.Visits.ListByPremise(ctx, id, openOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"visits": visits})
}

// Review returns the derived decision state of one entry, including the
// open-visit conflict staff must resolve before approving.
func (h *AdmissionHandler) Review(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entry, ok := h.ownedEntry(c, ctx)
	if !ok {
		return nil
	}
	state, _, err := h.Engine.Review(ctx, entry.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "review failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"entry": entry, "state": state})
}

// Approve admits the entry: a visit is created and the entry row goes
// away atomically.  An open-visit conflict comes back as 409 with the
// blocking state so the dashboard can offer the resolve actions.
func (h *AdmissionHandler) Approve(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entry, ok := h.ownedEntry(c, ctx)
	if !ok {
		return nil
	}
	visit, err := h.Engine.Approve(ctx, entry.ID, uid)
	if err != nil {
		return h.decisionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"visit": visit})
}

// Deny refuses the entry with a mandatory reason.
func (h *AdmissionHandler) Deny(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req denyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entry, ok := h.ownedEntry(c, ctx)
	if !ok {
		return nil
	}
	if err := h.Engine.Deny(ctx, entry.ID, req.Reason, uid); err != nil {
		return h.decisionError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ResolveApprove checks out the stale open visit and admits the entry
// in one step.  The checkout reason is mandatory.
func (h *AdmissionHandler) ResolveApprove(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req resolveApproveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entry, ok := h.ownedEntry(c, ctx)
	if !ok {
		return nil
	}
	visit, err := h.Engine.ResolveApprove(ctx, entry.ID, req.CheckoutReason, uid)
	if err != nil {
		return h.decisionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"visit": visit})
}

// ResolveDeny checks out the stale open visit and refuses the entry in
// one step.  Both reasons are mandatory.
func (h *AdmissionHandler) ResolveDeny(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req resolveDenyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entry, ok := h.ownedEntry(c, ctx)
	if !ok {
		return nil
	}
	if err := h.Engine.ResolveDeny(ctx, entry.ID, req.CheckoutReason, req.DenyReason, uid); err != nil {
		return h.decisionError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Checkout records a visitor leaving the premises.  Only available when
// the premise tracks exits.
func (h *AdmissionHandler) Checkout(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid visit id"})
	}
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	visit, err := h.Visits.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "visit not found"})
	}
	premise, ok := h.ownedPremise(c, ctx, visit.PremiseID)
	if !ok {
		return nil
	}
	if !premise.ExitTracking {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "exit tracking disabled for this premise"})
	}
	updated, err := h.Engine.Checkout(ctx, visit.ID, req.Reason)
	if err != nil {
		return h.decisionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"visit": updated})
}

// decisionError maps engine failures onto HTTP responses.
func (h *AdmissionHandler) decisionError(c echo.Context, err error) error {
	var conflict *admission.ConflictError
	switch {
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "open visit must be resolved first", "state": conflict.State})
	case errors.Is(err, admission.ErrReasonRequired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a non-empty reason is required"})
	case errors.Is(err, admission.ErrEntryResolved):
		return c.JSON(http.StatusConflict, echo.Map{"error": "entry has already been resolved"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrOpenVisit):
		// The conflicting visit changed between the engine's read and its
		// write; the decision must be retried against the fresh state.
		return c.JSON(http.StatusConflict, echo.Map{"error": "open visit changed, retry the decision"})
	case errors.Is(err, sql.ErrNoRows):
		// The guarded update matched nothing: the visit is already closed.
		return c.JSON(http.StatusConflict, echo.Map{"error": "visit already checked out"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "decision failed"})
	}
}
