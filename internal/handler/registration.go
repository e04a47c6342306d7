package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/venuepass/visitor-management/internal/config"
	"github.com/venuepass/visitor-management/internal/model"
	"github.com/venuepass/visitor-management/internal/repository"
)

// RegistrationHandler serves the post-check-in upsell: an approved
// visitor may save their details as a reusable profile so future intake
// forms come prefilled.  Declining is simply not calling this endpoint;
// the visit already created is unaffected either way.
type RegistrationHandler struct {
	Cfg        config.Config
	Registered *repository.RegisteredUserRepo
	Visits     *repository.VisitRepo
}

func NewRegistrationHandler(cfg config.Config, r *repository.RegisteredUserRepo, v *repository.VisitRepo) *RegistrationHandler {
	return &RegistrationHandler{Cfg: cfg, Registered: r, Visits: v}
}

type registerVisitorReq struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	IDNumber string `json:"idnumber" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8"`
	// VisitUUID carries the photo captured during the just-approved
	// visit over to the profile, so the visitor does not retake it.
	VisitUUID string `json:"visit_uuid"`
}

// Register creates the visitor profile and hands back the lookup code
// used to prefill future entry forms.
func (h *RegistrationHandler) Register(c echo.Context) error {
	var req registerVisitorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u := model.RegisteredUser{
		Code:     uuid.New().String(),
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:    strings.TrimSpace(req.Phone),
		IDNumber: strings.TrimSpace(req.IDNumber),
	}
	if req.VisitUUID != "" {
		if visit, err := h.Visits.GetByUUID(ctx, req.VisitUUID); err == nil {
			u.Photo = visit.Photo
		}
	}

	created, err := h.Registered.Create(ctx, u, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create profile failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"code":  created.Code,
		"name":  created.Name,
		"email": created.Email,
	})
}
