package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/garage-regform-api/internal/auth"
	"github.com/gdg-garage/garage-regform-api/internal/models"
	"github.com/gdg-garage/garage-regform-api/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UploadHandler struct {
	db          *gorm.DB
	store       storage.Store
	authHandler *auth.AuthHandler
}

func NewUploadHandler(db *gorm.DB, store storage.Store, authHandler *auth.AuthHandler) *UploadHandler {
	return &UploadHandler{db: db, store: store, authHandler: authHandler}
}

type UploadFileRequest struct {
	auth.AuthInput
	Filename    string `query:"filename" doc:"Original filename of the upload" required:"true"`
	ContentType string `header:"Content-Type"`
	RawBody     []byte
}

type UploadFileResponse struct {
	Body struct {
		FileID   string `json:"file_id" doc:"Opaque id to reference from a file field value"`
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
	}
}

// HandleUpload stores the raw request body and returns an opaque file id.
// The id is only attached to a registration once it is submitted in a
// file field value.
func (h *UploadHandler) HandleUpload(ctx context.Context, input *UploadFileRequest) (*UploadFileResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("Empty upload")
	}

	key := uuid.NewString()
	filename := storage.SecureFilename(input.Filename, "upload")
	if err := h.store.Save(key, input.RawBody); err != nil {
		return nil, huma.Error500InternalServerError("Failed to store file: " + err.Error())
	}

	file := models.StoredFile{
		Key:         key,
		Filename:    filename,
		ContentType: storage.ContentType(filename, input.ContentType),
		Size:        int64(len(input.RawBody)),
		UserID:      userID,
	}
	if err := h.db.Create(&file).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to record file: " + err.Error())
	}

	resp := &UploadFileResponse{}
	resp.Body.FileID = file.Key
	resp.Body.Filename = file.Filename
	resp.Body.Size = file.Size
	return resp, nil
}
