package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/garage-regform-api/internal/auth"
	"github.com/gdg-garage/garage-regform-api/internal/config"
	"github.com/gdg-garage/garage-regform-api/internal/fields"
	"github.com/gdg-garage/garage-regform-api/internal/models"
	"github.com/gdg-garage/garage-regform-api/internal/regform"
	"gorm.io/gorm"
)

type FieldHandler struct {
	db          *gorm.DB
	svc         *regform.Service
	authHandler *auth.AuthHandler
	cfg         *config.Config
}

func NewFieldHandler(db *gorm.DB, svc *regform.Service, authHandler *auth.AuthHandler, cfg *config.Config) *FieldHandler {
	return &FieldHandler{db: db, svc: svc, authHandler: authHandler, cfg: cfg}
}

type CreateFieldRequest struct {
	auth.AuthInput
	FormID uint `path:"formID"`
	Body   struct {
		Title       string        `json:"title" doc:"Field caption shown to participants" required:"true"`
		FieldType   string        `json:"field_type" doc:"One of the registered field types" required:"true"`
		Description string        `json:"description" doc:"Help text"`
		IsRequired  bool          `json:"is_required"`
		Config      fields.Config `json:"config" doc:"Type-specific configuration"`
	}
}

type FieldResponse struct {
	Body *regform.AdminView
}

// HandleCreateField processes the configuration for a new field and
// returns its admin view.
func (h *FieldHandler) HandleCreateField(ctx context.Context, input *CreateFieldRequest) (*FieldResponse, error) {
	if _, err := requireOrg(ctx, input.Cookie, h.db, h.authHandler, h.cfg); err != nil {
		return nil, err
	}
	var form models.RegistrationForm
	if err := h.db.First(&form, input.FormID).Error; err != nil {
		return nil, huma.Error404NotFound("Form not found")
	}

	field, err := h.svc.CreateField(form.ID, input.Body.Title, fields.Type(input.Body.FieldType),
		input.Body.IsRequired, input.Body.Description, &input.Body.Config)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to create field: " + err.Error())
	}

	view, err := h.svc.FieldAdminView(field)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to render field: " + err.Error())
	}
	return &FieldResponse{Body: view}, nil
}

type UpdateFieldRequest struct {
	auth.AuthInput
	FieldID uint `path:"fieldID"`
	Body    struct {
		Config fields.Config `json:"config" doc:"Type-specific configuration"`
	}
}

// HandleUpdateField reprocesses a field's configuration. Caption changes
// are applied in place; changes to prices, limits or the choice list
// create a new versioned snapshot while old registrations stay pinned to
// theirs.
func (h *FieldHandler) HandleUpdateField(ctx context.Context, input *UpdateFieldRequest) (*FieldResponse, error) {
	if _, err := requireOrg(ctx, input.Cookie, h.db, h.authHandler, h.cfg); err != nil {
		return nil, err
	}

	field, err := h.svc.UpdateField(input.FieldID, &input.Body.Config)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("Field not found")
		}
		return nil, huma.Error400BadRequest("Failed to update field: " + err.Error())
	}

	view, err := h.svc.FieldAdminView(field)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to render field: " + err.Error())
	}
	return &FieldResponse{Body: view}, nil
}

type GetFieldRequest struct {
	auth.AuthInput
	FieldID uint `path:"fieldID"`
}

func (h *FieldHandler) HandleGetField(ctx context.Context, input *GetFieldRequest) (*FieldResponse, error) {
	if _, err := requireOrg(ctx, input.Cookie, h.db, h.authHandler, h.cfg); err != nil {
		return nil, err
	}

	field, err := h.svc.LoadField(input.FieldID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("Field not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load field: " + err.Error())
	}

	view, err := h.svc.FieldAdminView(field)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to render field: " + err.Error())
	}
	return &FieldResponse{Body: view}, nil
}

type FieldOptionsRequest struct {
	auth.AuthInput
	FieldID uint `path:"fieldID"`
}

type FieldOptionsResponse struct {
	Body *regform.MergedOptions
}

// HandleFieldOptions returns the field's options for the caller's edit
// form, with options removed since their registration merged back in
// from the pinned snapshot.
func (h *FieldHandler) HandleFieldOptions(ctx context.Context, input *FieldOptionsRequest) (*FieldOptionsResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}

	field, err := h.svc.LoadField(input.FieldID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("Field not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load field: " + err.Error())
	}

	var reg models.Registration
	if err := h.db.Where("form_id = ? AND user_id = ?", field.FormID, userID).First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("No registration for this form")
		}
		return nil, huma.Error500InternalServerError("Failed to load registration: " + err.Error())
	}

	options, err := h.svc.FieldMergedOptions(field, &reg)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to merge options: " + err.Error())
	}
	return &FieldOptionsResponse{Body: options}, nil
}
