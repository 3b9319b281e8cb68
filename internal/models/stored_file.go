package models

import (
	"gorm.io/gorm"
)

// StoredFile is the metadata of a persisted upload. Key is the opaque
// storage key the content lives under; file fields reference rows here
// rather than carrying content in their data payload.
type StoredFile struct {
	gorm.Model
	Key         string `json:"key" gorm:"uniqueIndex"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	UserID      uint   `json:"user_id" gorm:"index"`
}
