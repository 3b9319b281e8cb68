package database

import (
	"log"

	"github.com/gdg-garage/garage-regform-api/internal/config"
	"github.com/gdg-garage/garage-regform-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto Migrate
	err = db.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.RegistrationForm{},
		&models.FormField{},
		&models.FieldDataVersion{},
		&models.Registration{},
		&models.RegistrationData{},
		&models.StoredFile{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate: %v", err)
	}

	return db
}
