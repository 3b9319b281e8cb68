package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/garage-regform-api/internal/auth"
	"github.com/gdg-garage/garage-regform-api/internal/config"
	"github.com/gdg-garage/garage-regform-api/internal/fields"
	"github.com/gdg-garage/garage-regform-api/internal/models"
	"github.com/gdg-garage/garage-regform-api/internal/notifier"
	"github.com/gdg-garage/garage-regform-api/internal/regform"
	"gorm.io/gorm"
)

type RegistrationHandler struct {
	db          *gorm.DB
	svc         *regform.Service
	notifier    notifier.Notifier
	authHandler *auth.AuthHandler
	cfg         *config.Config
}

func NewRegistrationHandler(db *gorm.DB, svc *regform.Service, n notifier.Notifier, authHandler *auth.AuthHandler, cfg *config.Config) *RegistrationHandler {
	return &RegistrationHandler{db: db, svc: svc, notifier: n, authHandler: authHandler, cfg: cfg}
}

type SubmitRegistrationRequest struct {
	auth.AuthInput
	FormID uint `path:"formID"`
	Body   struct {
		Values map[uint]json.RawMessage `json:"values" doc:"Field values keyed by field ID" required:"true"`
	}
}

type RegistrationResponse struct {
	Body struct {
		RegistrationID uint                `json:"registration_id"`
		State          string              `json:"state"`
		Fields         []regform.FieldView `json:"fields"`
		TotalPrice     float64             `json:"total_price"`
	}
}

// HandleSubmit creates the caller's registration for a form, or updates
// it if one already exists. Values for fields locked by payment keep
// their stored data.
func (h *RegistrationHandler) HandleSubmit(ctx context.Context, input *SubmitRegistrationRequest) (*RegistrationResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}

	var form models.RegistrationForm
	if err := h.db.First(&form, input.FormID).Error; err != nil {
		return nil, huma.Error404NotFound("Form not found")
	}

	var reg models.Registration
	err = h.db.Where("form_id = ? AND user_id = ?", form.ID, userID).First(&reg).Error
	switch {
	case err == nil:
		err = h.svc.ModifyRegistration(&reg, regform.Submission(input.Body.Values), false)
	case errors.Is(err, gorm.ErrRecordNotFound):
		var created *models.Registration
		created, err = h.svc.CreateRegistration(form.ID, userID, regform.Submission(input.Body.Values), false)
		if created != nil {
			reg = *created
		}
	default:
		return nil, huma.Error500InternalServerError("Failed to load registration: " + err.Error())
	}
	if err != nil {
		var verr *fields.ValidationError
		if errors.As(err, &verr) {
			return nil, huma.Error422UnprocessableEntity(verr.Message)
		}
		return nil, huma.Error500InternalServerError("Failed to save registration: " + err.Error())
	}

	return h.registrationResponse(&reg, &form, true)
}

type GetRegistrationRequest struct {
	auth.AuthInput
	FormID uint `path:"formID"`
}

// HandleGetRegistration returns the caller's registration for a form,
// priced against the snapshots it was submitted under.
func (h *RegistrationHandler) HandleGetRegistration(ctx context.Context, input *GetRegistrationRequest) (*RegistrationResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}

	var form models.RegistrationForm
	if err := h.db.First(&form, input.FormID).Error; err != nil {
		return nil, huma.Error404NotFound("Form not found")
	}

	var reg models.Registration
	if err := h.db.Where("form_id = ? AND user_id = ?", form.ID, userID).First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("No registration for this form")
		}
		return nil, huma.Error500InternalServerError("Failed to load registration: " + err.Error())
	}

	return h.registrationResponse(&reg, &form, false)
}

type WithdrawRegistrationRequest struct {
	auth.AuthInput
	FormID uint `path:"formID"`
}

// HandleWithdraw marks the caller's registration withdrawn. Withdrawn
// registrations stop counting towards capacity limits.
func (h *RegistrationHandler) HandleWithdraw(ctx context.Context, input *WithdrawRegistrationRequest) (*RegistrationResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}

	var form models.RegistrationForm
	if err := h.db.First(&form, input.FormID).Error; err != nil {
		return nil, huma.Error404NotFound("Form not found")
	}

	var reg models.Registration
	if err := h.db.Where("form_id = ? AND user_id = ?", form.ID, userID).First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("No registration for this form")
		}
		return nil, huma.Error500InternalServerError("Failed to load registration: " + err.Error())
	}
	if reg.IsPaid() {
		return nil, huma.Error409Conflict("Paid registrations can't be withdrawn, contact the organizers")
	}

	reg.State = models.RegistrationStateWithdrawn
	if err := h.db.Save(&reg).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to withdraw registration: " + err.Error())
	}

	return h.registrationResponse(&reg, &form, true)
}

func (h *RegistrationHandler) registrationResponse(reg *models.Registration, form *models.RegistrationForm, notify bool) (*RegistrationResponse, error) {
	views, total, err := h.svc.RegistrationView(reg)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to render registration: " + err.Error())
	}

	if notify && h.notifier != nil {
		var user models.User
		if err := h.db.First(&user, reg.UserID).Error; err == nil {
			summary := make([]string, 0, len(views))
			for _, v := range views {
				summary = append(summary, fmt.Sprintf("%s: %v", v.Title, v.FriendlyData))
			}
			if err := h.notifier.NotifyRegistration(user, *form, *reg, total, summary); err != nil {
				log.Printf("Failed to notify about registration %d: %v", reg.ID, err)
			}
		}
	}

	resp := &RegistrationResponse{}
	resp.Body.RegistrationID = reg.ID
	resp.Body.State = reg.State
	resp.Body.Fields = views
	resp.Body.TotalPrice = total
	return resp, nil
}
