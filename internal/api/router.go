package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/videosorter/internal/api/handler"
	mw "github.com/iconidentify/videosorter/internal/api/middleware"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	UI     *handler.UIHandler
	Upload *handler.UploadHandler
	Health *handler.HealthHandler
	Server *handler.ServerHandler
	Video  *handler.VideoHandler
	Drive  *handler.DriveHandler
	Export *handler.ExportHandler
	Event  *handler.EventHandler
}

// NewRouter creates the HTTP router with all routes configured. Only
// the upload page and its assets are reachable without the session token.
func NewRouter(h Handlers, tokens mw.TokenValidator) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.CORS)

	auth := mw.TokenAuth(tokens)

	// Upload page (no auth; the page carries the token in its own URL)
	r.Get("/", h.UI.Page)
	r.Get("/upload", h.UI.Page)
	r.Get("/upload.*", h.UI.Asset)

	// Unknown paths and wrong methods answer 401 to callers without the token.
	r.NotFound(auth(http.NotFoundHandler()).ServeHTTP)
	r.MethodNotAllowed(auth(http.HandlerFunc(methodNotAllowed)).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Post("/upload", h.Upload.Upload)
		r.Get("/status", h.Health.Status)
		r.Get("/info", h.Health.Info)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/server", h.Server.Info)
			r.Get("/stats", h.Video.Stats)
			r.Get("/categories", h.Video.Categories)

			r.Get("/videos", h.Video.List)
			r.Post("/videos/bulk-classify", h.Video.BulkClassify)
			r.Get("/videos/{videoID}", h.Video.Get)
			r.Put("/videos/{videoID}/category", h.Video.SetCategory)
			r.Delete("/videos/{videoID}", h.Video.Delete)

			r.Post("/classify", h.Video.Classify)
			r.Get("/classify/suggest", h.Video.Suggest)

			r.Get("/drives", h.Drive.List)

			r.Get("/exports", h.Export.History)
			r.Post("/exports", h.Export.Start)
			r.Get("/exports/status", h.Export.Status)
			r.Post("/exports/abort", h.Export.Abort)

			r.Get("/events", h.Event.List)
			r.Get("/events/stream", h.Event.Stream)
		})
	})

	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
