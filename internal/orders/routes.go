package orders

import "github.com/go-chi/chi/v5"

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Get("/{id}/due", h.dueInfo)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/restore", h.restore)

	r.Post("/{id}/garments", h.addGarment)
	r.Put("/{id}/garments/{garmentID}", h.updateGarment)
	r.Post("/{id}/garments/{garmentID}/services", h.addService)
	r.Post("/{id}/garments/{garmentID}/services/{serviceID}/done", h.setServiceDone)
	r.Post("/{id}/garments/{garmentID}/services/{serviceID}/remove", h.removeService)
}
