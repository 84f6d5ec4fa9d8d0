package engine

import "github.com/gofiber/fiber/v2"

// RegisterRecordRoutes mounts the record-editing surface.
func RegisterRecordRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	records := app.Group("/api/records", middleware...)

	records.Get("/:type/_form", h.FormSpecs)
	records.Get("/:type", h.List)
	records.Post("/:type", h.Create)
	records.Get("/:type/:id", h.GetByID)
	records.Put("/:type/:id", h.Update)
	records.Delete("/:type/:id", h.Delete)
}
