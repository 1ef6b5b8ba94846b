// Package server exposes the storage layer over a local HTTP/JSON API
// consumed by the desktop shell. One active store per process; all handlers
// share it through the Handler struct.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/icalvete/facturador/internal/httpx"
	"github.com/icalvete/facturador/internal/store"
)

type Handler struct {
	store      store.Store
	logger     *slog.Logger
	uploadsDir string
}

func New(s store.Store, logger *slog.Logger, uploadsDir string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: s, logger: logger, uploadsDir: uploadsDir}
}

// Router wires every endpoint. CORS is open to localhost only; the renderer
// is the single expected client.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.listClients)
			r.Post("/", h.createClient)
			r.Get("/{id}", h.getClient)
			r.Put("/{id}", h.updateClient)
			r.Delete("/{id}", h.deleteClient)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Post("/", h.createProduct)
			r.Get("/{id}", h.getProduct)
			r.Put("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.listInvoices)
			r.Post("/", h.createInvoice)
			r.Get("/next-number", h.nextInvoiceNumber)
			r.Get("/{id}", h.getInvoice)
			r.Put("/{id}", h.updateInvoice)
			r.Delete("/{id}", h.deleteInvoice)
			r.Put("/{id}/status", h.updateInvoiceStatus)
			r.Get("/{id}/pdf", h.invoicePDF)
			r.Get("/{id}/attachments", h.listAttachments)
			r.Post("/{id}/attachments", h.uploadAttachment)
		})

		r.Route("/attachments", func(r chi.Router) {
			r.Get("/{id}", h.downloadAttachment)
			r.Delete("/{id}", h.deleteAttachment)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.getSettings)
			r.Put("/company", h.saveCompanySettings)
			r.Put("/invoice", h.saveInvoiceSettings)
		})

		r.Get("/dashboard", h.dashboard)
		r.Get("/activity", h.recentActivity)

		r.Post("/users", h.registerUser)
		r.Post("/login", h.login)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": h.store.Name(),
	})
}
