package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docufy/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin; all lifecycle rules live in the service.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/documents", ListDocuments(docSvc))
	app.Post("/documents", UploadDocument(docSvc))
	app.Get("/documents/:identifier", GetDocument(docSvc))
	app.Put("/documents/:identifier/status", UpdateDocumentStatus(docSvc))
	app.Post("/documents/:identifier/approve", ApproveDocument(docSvc))
	app.Post("/documents/:identifier/reject", RejectDocument(docSvc))
}
