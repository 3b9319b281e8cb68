package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/garage-regform-api/internal/auth"
	"github.com/gdg-garage/garage-regform-api/internal/config"
	"github.com/gdg-garage/garage-regform-api/internal/database"
	"github.com/gdg-garage/garage-regform-api/internal/handlers"
	"github.com/gdg-garage/garage-regform-api/internal/notifier"
	"github.com/gdg-garage/garage-regform-api/internal/regform"
	"github.com/gdg-garage/garage-regform-api/internal/storage"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	// Discord session is optional; role checks and notifications degrade
	// without it.
	var session *discordgo.Session
	if cfg.DiscordBotToken != "" {
		var err error
		session, err = discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			log.Printf("Discord session not initialized: %v", err)
			session = nil
		}
	}

	store, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	svc := regform.NewService(db)
	discordNotifier := notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID)

	// Initialize Handlers
	authHandler := auth.NewAuthHandler(cfg, db, session)
	formHandler := handlers.NewFormHandler(db, svc, authHandler, cfg)
	fieldHandler := handlers.NewFieldHandler(db, svc, authHandler, cfg)
	registrationHandler := handlers.NewRegistrationHandler(db, svc, discordNotifier, authHandler, cfg)
	uploadHandler := handlers.NewUploadHandler(db, store, authHandler)
	apiKeyHandler := handlers.NewAPIKeyHandler(db, authHandler)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, cfg, authHandler, formHandler, fieldHandler,
		registrationHandler, uploadHandler, apiKeyHandler)

	// Start Server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
