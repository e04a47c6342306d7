package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/venuepass/visitor-management/internal/model"
	"github.com/venuepass/visitor-management/internal/repository"
)

// PremiseHandler serves premise registration and settings for owner and
// staff accounts.
type PremiseHandler struct {
	Premises *repository.PremiseRepo
}

func NewPremiseHandler(p *repository.PremiseRepo) *PremiseHandler {
	return &PremiseHandler{Premises: p}
}

type createPremiseReq struct {
	Name         string `json:"name" validate:"required,min=2,max=120"`
	ContactPhone string `json:"contact_phone" validate:"omitempty,max=32"`
	BusinessType string `json:"business_type" validate:"omitempty,max=64"`
}

// patchPremiseReq uses pointers so absent flags are left untouched.
type patchPremiseReq struct {
	Name                 *string `json:"name" validate:"omitempty,min=2,max=120"`
	ContactPhone         *string `json:"contact_phone" validate:"omitempty,max=32"`
	BusinessType         *string `json:"business_type" validate:"omitempty,max=64"`
	ExitTracking         *bool   `json:"exit_tracking"`
	MultiEntry           *bool   `json:"multi_entry"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
}

type premiseResp struct {
	ID                   uint64    `json:"id"`
	Name                 string    `json:"name"`
	ContactPhone         string    `json:"contact_phone"`
	BusinessType         string    `json:"business_type"`
	ExitTracking         bool      `json:"exit_tracking"`
	MultiEntry           bool      `json:"multi_entry"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func toPremiseResp(p model.Premise) premiseResp {
	return premiseResp{
		ID:                   p.ID,
		Name:                 p.Name,
		ContactPhone:         p.ContactPhone,
		BusinessType:         p.BusinessType,
		ExitTracking:         p.ExitTracking,
		MultiEntry:           p.MultiEntry,
		NotificationsEnabled: p.NotificationsEnabled,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

// Create registers a new premise for the authenticated owner.
func (h *PremiseHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createPremiseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Premises.Create(ctx, uid, strings.TrimSpace(req.Name), strings.TrimSpace(req.ContactPhone), strings.TrimSpace(req.BusinessType))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create premise failed"})
	}
	return c.JSON(http.StatusCreated, toPremiseResp(p))
}

// Get returns one premise owned by the caller.
func (h *PremiseHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid premise id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Premises.GetOwned(ctx, id, uid)
	switch err {
	case nil:
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "premise not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toPremiseResp(p))
}

// List returns every premise owned by the caller.
func (h *PremiseHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Premises.ListByOwner(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]premiseResp, 0, len(list))
	for _, p := range list {
		out = append(out, toPremiseResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"premises": out})
}

// Patch updates the premise settings screen: display data and the three
// feature flags.  Only the fields present in the body change.
func (h *PremiseHandler) Patch(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid premise id"})
	}
	var req patchPremiseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Premises.GetOwned(ctx, id, uid)
	switch err {
	case nil:
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "premise not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.ContactPhone != nil {
		p.ContactPhone = strings.TrimSpace(*req.ContactPhone)
	}
	if req.BusinessType != nil {
		p.BusinessType = strings.TrimSpace(*req.BusinessType)
	}
	if req.ExitTracking != nil {
		p.ExitTracking = *req.ExitTracking
	}
	if req.MultiEntry != nil {
		p.MultiEntry = *req.MultiEntry
	}
	if req.NotificationsEnabled != nil {
		p.NotificationsEnabled = *req.NotificationsEnabled
	}

	if err := h.Premises.UpdateSettings(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	p.UpdatedAt = time.Now().UTC()
	return c.JSON(http.StatusOK, toPremiseResp(p))
}
