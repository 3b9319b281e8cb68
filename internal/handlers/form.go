package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/garage-regform-api/internal/auth"
	"github.com/gdg-garage/garage-regform-api/internal/config"
	"github.com/gdg-garage/garage-regform-api/internal/models"
	"github.com/gdg-garage/garage-regform-api/internal/regform"
	"gorm.io/gorm"
)

type FormHandler struct {
	db          *gorm.DB
	svc         *regform.Service
	authHandler *auth.AuthHandler
	cfg         *config.Config
}

func NewFormHandler(db *gorm.DB, svc *regform.Service, authHandler *auth.AuthHandler, cfg *config.Config) *FormHandler {
	return &FormHandler{db: db, svc: svc, authHandler: authHandler, cfg: cfg}
}

// requireOrg authorizes the caller and checks the org Discord role.
func requireOrg(ctx context.Context, cookie string, db *gorm.DB, authHandler *auth.AuthHandler, cfg *config.Config) (uint, error) {
	userID, err := authHandler.Authorize(ctx, cookie)
	if err != nil {
		return 0, err
	}
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return 0, huma.Error404NotFound("User not found")
	}
	hasRole, err := authHandler.CheckRole(user.DiscordID, cfg.OrgRole)
	if err != nil {
		return 0, huma.Error500InternalServerError("Failed to check role: " + err.Error())
	}
	if !hasRole {
		return 0, huma.Error403Forbidden("Access denied: missing " + cfg.OrgRole + " role")
	}
	return userID, nil
}

type CreateFormRequest struct {
	auth.AuthInput
	Body struct {
		Event string `json:"event" doc:"Unique event slug" required:"true"`
		Title string `json:"title" doc:"Display title of the form" required:"true"`
	}
}

type CreateFormResponse struct {
	Body struct {
		ID    uint   `json:"id"`
		Event string `json:"event"`
	}
}

func (h *FormHandler) HandleCreateForm(ctx context.Context, input *CreateFormRequest) (*CreateFormResponse, error) {
	if _, err := requireOrg(ctx, input.Cookie, h.db, h.authHandler, h.cfg); err != nil {
		return nil, err
	}

	form := models.RegistrationForm{Event: input.Body.Event, Title: input.Body.Title}
	if err := h.db.Create(&form).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create form: " + err.Error())
	}

	res := &CreateFormResponse{}
	res.Body.ID = form.ID
	res.Body.Event = form.Event
	return res, nil
}

type GetFormRequest struct {
	FormID uint `path:"formID"`
}

type GetFormResponse struct {
	Body struct {
		ID     uint                 `json:"id"`
		Event  string               `json:"event"`
		Title  string               `json:"title"`
		Fields []*regform.AdminView `json:"fields"`
	}
}

// HandleGetForm returns the form with the view data of every field,
// including current occupancy counts for capacity-limited fields.
func (h *FormHandler) HandleGetForm(ctx context.Context, input *GetFormRequest) (*GetFormResponse, error) {
	var form models.RegistrationForm
	if err := h.db.First(&form, input.FormID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("Form not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load form: " + err.Error())
	}

	formFields, err := h.svc.LoadFormFields(form.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load fields: " + err.Error())
	}

	res := &GetFormResponse{}
	res.Body.ID = form.ID
	res.Body.Event = form.Event
	res.Body.Title = form.Title
	for i := range formFields {
		view, err := h.svc.FieldAdminView(&formFields[i])
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to render field: " + err.Error())
		}
		res.Body.Fields = append(res.Body.Fields, view)
	}
	return res, nil
}
