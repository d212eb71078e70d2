package routes

import (
	"github.com/gofiber/fiber/v2"

	"belegflow-backend/controllers"
	"belegflow-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, upload *controllers.UploadController) {
	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/registration", controllers.Register)
	api.Post("/login", controllers.Login)
	api.Post("/logout", controllers.Logout)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader())

	// Idempotency guard FIRST (not tied to request TX)
	protected.Use(middlewares.Idempotency())

	// Then per-request tenant transaction (pins search_path and commits/rolls back)
	protected.Use(middlewares.TenantTx())

	// Customers
	protected.Post("/customer", controllers.CreateCustomer)
	protected.Get("/customers", controllers.GetCustomers)
	protected.Get("/customer/:id", controllers.GetCustomer)
	protected.Put("/customer/:id", controllers.UpdateCustomer)

	// Batches (periods with derived lifecycle state)
	protected.Post("/batch", controllers.CreateBatch)
	protected.Get("/batches", controllers.GetBatches)
	protected.Get("/batch/:id", controllers.GetBatch)
	protected.Put("/batch/:id", controllers.UpdateBatch)
	protected.Put("/batch/:id/finalize", controllers.FinalizeBatch)
	protected.Delete("/batch/:id", controllers.DeleteBatch)

	// Receipts
	protected.Post("/receipt", controllers.CreateReceipt)
	protected.Get("/batch/:id/receipts", controllers.GetReceiptsByBatch)
	protected.Get("/receipt/:id", controllers.GetReceipt)
	protected.Put("/receipt/:id", controllers.UpdateReceipt)
	protected.Put("/receipt/:id/review", controllers.ReviewReceipt)
	protected.Delete("/receipt/:id", controllers.DeleteReceipt)

	// Upload pipeline + stored files
	protected.Post("/batch/:id/upload", upload.UploadReceipt)
	protected.Get("/receipt/:id/file", upload.GetReceiptFile)

	// Reports
	protected.Get("/batch/:id/report", controllers.GetBatchReport)
	protected.Get("/batch/:id/report.xlsx", controllers.ExportBatchReport)
}
