package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/venuepass/visitor-management/internal/model"
	"github.com/venuepass/visitor-management/internal/qr"
	"github.com/venuepass/visitor-management/internal/repository"
)

// FieldConfigHandler serves the intake-form builder: staff read and
// replace the premise's field set, and download the QR code issued for
// the current iteration.
type FieldConfigHandler struct {
	Premises *repository.PremiseRepo
	Configs  *repository.FieldConfigRepo
}

func NewFieldConfigHandler(p *repository.PremiseRepo, f *repository.FieldConfigRepo) *FieldConfigHandler {
	return &FieldConfigHandler{Premises: p, Configs: f}
}

type putFieldsReq struct {
	Fields []model.Field `json:"fields" validate:"required,min=1,dive"`
}

type fieldConfigResp struct {
	PremiseID uint64        `json:"premise_id"`
	Iteration uint32        `json:"iteration"`
	Fields    []model.Field `json:"fields"`
	QRPayload string        `json:"qr_payload,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func toFieldConfigResp(cfg model.FieldConfiguration) fieldConfigResp {
	return fieldConfigResp{
		PremiseID: cfg.PremiseID,
		Iteration: cfg.Iteration,
		Fields:    cfg.Fields,
		QRPayload: cfg.QRPayload,
		CreatedAt: cfg.CreatedAt,
	}
}

// owned loads the premise and enforces that the caller owns it.  On
// failure the response has already been written and ok is false.
func (h *FieldConfigHandler) owned(c echo.Context, ctx context.Context) (model.Premise, bool) {
	uid, err := getUserID(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return model.Premise{}, false
	}
	id, ok := pathID(c, "id")
	if !ok {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid premise id"})
		return model.Premise{}, false
	}
	p, err := h.Premises.GetOwned(ctx, id, uid)
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

// GetFields returns the premise's current (highest-iteration) field
// configuration, or the defaults when nothing was saved yet.
func (h *FieldConfigHandler) GetFields(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, ok := h.owned(c, ctx)
	if !ok {
		return nil
	}
	cfg, err := h.Configs.Load(ctx, p.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load configuration failed"})
	}
	return c.JSON(http.StatusOK, toFieldConfigResp(cfg))
}

// PutFields replaces the field set.  The submitted fields are
// normalized (core fields forced visible and required, stable ids kept)
// and appended as a new iteration with a fresh QR payload; the previous
// iterations stay untouched for already-printed codes.
func (h *FieldConfigHandler) PutFields(c echo.Context) error {
	var req putFieldsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, ok := h.owned(c, ctx)
	if !ok {
		return nil
	}
	cfg, err := h.Configs.Save(ctx, p.ID, req.Fields)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save configuration failed"})
	}
	return c.JSON(http.StatusCreated, toFieldConfigResp(cfg))
}

// QRInfo returns the entry URL and iteration behind the premise's
// current QR code, for rendering in the dashboard.
func (h *FieldConfigHandler) QRInfo(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, ok := h.owned(c, ctx)
	if !ok {
		return nil
	}
	cfg, err := h.Configs.Load(ctx, p.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load configuration failed"})
	}
	if cfg.Iteration == 0 {
		// Nothing saved yet, so no QR has been issued.
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no configuration saved yet"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"premise_id": p.ID,
		"iteration":  cfg.Iteration,
		"qr_payload": cfg.QRPayload,
	})
}

// QRImage renders the premise's current QR code as a PNG download.
func (h *FieldConfigHandler) QRImage(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, ok := h.owned(c, ctx)
	if !ok {
		return nil
	}
	cfg, err := h.Configs.Load(ctx, p.ID)
	if err != nil && err != sql.ErrNoRows {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load configuration failed"})
	}
	if cfg.Iteration == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no configuration saved yet"})
	}
	png, err := qr.Render(cfg.QRPayload)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render qr failed"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="premise-%d-v%d.png"`, p.ID, cfg.Iteration))
	return c.Blob(http.StatusOK, "image/png", png)
}
