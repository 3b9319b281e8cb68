package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/gdg-garage/garage-regform-api/internal/auth"
	"github.com/gdg-garage/garage-regform-api/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func RegisterRoutes(r *chi.Mux, cfg *config.Config, authHandler *auth.AuthHandler,
	formHandler *FormHandler, fieldHandler *FieldHandler,
	registrationHandler *RegistrationHandler, uploadHandler *UploadHandler,
	apiKeyHandler *APIKeyHandler) {

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.EnableCORS {
		r.Use(corsMiddleware)
	}

	// Initialize Huma API
	humaConfig := huma.DefaultConfig("Garage Registration Form API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: "auth_token",
		},
	}
	api := humachi.New(r, humaConfig)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth routes
	r.Get("/auth/discord/login", authHandler.HandleLogin)
	r.Get("/auth/discord/callback", authHandler.HandleCallback)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authHandler.AuthMiddleware)

		withAuth := func(o *huma.Operation) {
			o.Security = []map[string][]string{{"cookieAuth": {}}}
		}

		huma.Get(api, "/me", authHandler.HandleMe, withAuth)

		huma.Post(api, "/api-keys", apiKeyHandler.HandleCreate, withAuth)
		huma.Get(api, "/api-keys", apiKeyHandler.HandleList, withAuth)
		huma.Delete(api, "/api-keys/{id}", apiKeyHandler.HandleDelete, withAuth)

		huma.Post(api, "/forms", formHandler.HandleCreateForm, withAuth)
		huma.Get(api, "/forms/{formID}", formHandler.HandleGetForm, withAuth)

		huma.Post(api, "/forms/{formID}/fields", fieldHandler.HandleCreateField, withAuth)
		huma.Get(api, "/fields/{fieldID}", fieldHandler.HandleGetField, withAuth)
		huma.Patch(api, "/fields/{fieldID}", fieldHandler.HandleUpdateField, withAuth)
		huma.Get(api, "/fields/{fieldID}/options", fieldHandler.HandleFieldOptions, withAuth)

		huma.Post(api, "/forms/{formID}/registration", registrationHandler.HandleSubmit, withAuth)
		huma.Get(api, "/forms/{formID}/registration", registrationHandler.HandleGetRegistration, withAuth)
		huma.Post(api, "/forms/{formID}/registration/withdraw", registrationHandler.HandleWithdraw, withAuth)

		huma.Post(api, "/files", uploadHandler.HandleUpload, withAuth)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
