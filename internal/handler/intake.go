package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/venuepass/visitor-management/internal/fieldconfig"
	"github.com/venuepass/visitor-management/internal/intake"
	"github.com/venuepass/visitor-management/internal/model"
	"github.com/venuepass/visitor-management/internal/repository"
)

// IntakeHandler serves the public entry endpoints a visitor reaches by
// scanning the QR at the door.  The URL shape is a wire contract:
// printed codes resolve to GET /entry?premise_id=<id>&v=<iteration>
// and must keep working for the lifetime of the printout.
type IntakeHandler struct {
	Premises   *repository.PremiseRepo
	Configs    *repository.FieldConfigRepo
	Entries    *repository.EntryRepo
	Registered *repository.RegisteredUserRepo
}

func NewIntakeHandler(p *repository.PremiseRepo, f *repository.FieldConfigRepo, e *repository.EntryRepo, r *repository.RegisteredUserRepo) *IntakeHandler {
	return &IntakeHandler{Premises: p, Configs: f, Entries: e, Registered: r}
}

type entryFormResp struct {
	PremiseID   uint64             `json:"premise_id"`
	PremiseName string             `json:"premise_name"`
	Iteration   uint32             `json:"iteration"`
	Prefilled   bool               `json:"prefilled"`
	Form        []intake.FormField `json:"form"`
}

type submitEntryReq struct {
	PremiseID uint64            `json:"premise_id" validate:"required"`
	Iteration uint32            `json:"iteration"`
	Values    map[string]string `json:"values" validate:"required"`
}

// Form renders the intake form for a scanned QR code.  The v query
// parameter pins the exact configuration iteration the code was printed
// against; a missing or unknown v falls back to the latest iteration so
// stale printouts still produce a usable form.  Optional code, email or
// phone parameters identify a registered visitor whose known fields
// come back prefilled and read-only.
func (h *IntakeHandler) Form(c echo.Context) error {
	premiseID, err := strconv.ParseUint(c.QueryParam("premise_id"), 10, 64)
	if err != nil || premiseID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "premise_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	premise, err := h.Premises.GetByID(ctx, premiseID)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "premise not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	cfg, err := h.loadPinned(ctx, premiseID, c.QueryParam("v"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load configuration failed"})
	}

	profile := h.lookupProfile(ctx, c)
	return c.JSON(http.StatusOK, entryFormResp{
		PremiseID:   premise.ID,
		PremiseName: premise.Name,
		Iteration:   cfg.Iteration,
		Prefilled:   profile != nil,
		Form:        intake.Resolve(cfg.Fields, profile),
	})
}

// Submit records a visitor's filled-in form as a pending entry and
// returns the uuid the client watches for the staff decision.
func (h *IntakeHandler) Submit(c echo.Context) error {
	var req submitEntryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Premises.GetByID(ctx, req.PremiseID); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "premise not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	// Validate against the iteration the form was rendered from, not
	// the latest one; a configuration edit mid-visit must not invalidate
	// a form already on the visitor's screen.
	cfg, err := h.loadPinned(ctx, req.PremiseID, strconv.FormatUint(uint64(req.Iteration), 10))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load configuration failed"})
	}
	if missing := intake.ValidateSubmission(cfg.Fields, req.Values); len(missing) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required fields", "fields": missing})
	}

	if photo, ok := req.Values["photo"]; ok {
		req.Values["photo"] = intake.NormalizePhoto(photo)
	}
	raw, err := json.Marshal(req.Values)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "encode submission failed"})
	}

	now := time.Now().UTC()
	entry := model.PendingEntry{
		UUID:            uuid.New().String(),
		PremiseID:       req.PremiseID,
		ConfigIteration: cfg.Iteration,
		Name:            strings.TrimSpace(req.Values[fieldconfig.FieldName]),
		IDNumber:        strings.TrimSpace(req.Values[fieldconfig.FieldIDNumber]),
		Phone:           strings.TrimSpace(req.Values[fieldconfig.FieldPhone]),
		FieldsJSON:      string(raw),
		Photo:           req.Values["photo"],
		Signature:       intake.Signature(req.Values[fieldconfig.FieldName], req.PremiseID, now),
		Status:          model.EntryStatusPending,
		SubmittedAt:     now,
	}
	created, err := h.Entries.Create(ctx, entry)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save entry failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"uuid":      created.UUID,
		"status":    created.Status,
		"stream":    "/entry/" + created.UUID + "/stream",
		"submitted": created.SubmittedAt,
	})
}

// loadPinned resolves the configuration iteration pinned by the v
// parameter, falling back to the latest when v is absent, malformed or
// was never issued.
func (h *IntakeHandler) loadPinned(ctx context.Context, premiseID uint64, v string) (model.FieldConfiguration, error) {
	if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
		cfg, err := h.Configs.LoadIteration(ctx, premiseID, uint32(n))
		if err == nil {
			return cfg, nil
		}
		if err != sql.ErrNoRows {
			return model.FieldConfiguration{}, err
		}
	}
	return h.Configs.Load(ctx, premiseID)
}

// lookupProfile resolves the optional registered-visitor identifiers on
// the request.  Lookup failures only disable prefill; the form itself
// must still render.
func (h *IntakeHandler) lookupProfile(ctx context.Context, c echo.Context) *model.RegisteredUser {
	code := strings.TrimSpace(c.QueryParam("code"))
	email := strings.TrimSpace(c.QueryParam("email"))
	phone := strings.TrimSpace(c.QueryParam("phone"))
	if code == "" && email == "" && phone == "" {
		return nil
	}
	profile, err := h.Registered.FindByIdentifier(ctx, code, email, phone)
	if err != nil {
		return nil
	}
	return profile
}
