package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rma-api/internal/application/auth"
	"github.com/jhoicas/rma-api/internal/application/rma"
	"github.com/jhoicas/rma-api/internal/application/usecase"
	"github.com/jhoicas/rma-api/internal/domain/entity"
)

// RouterDeps dependencias para el router. Scheduler es opcional.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	UserUC      *usecase.UserUseCase
	CatalogUC   *usecase.CatalogUseCase
	ProductUC   *usecase.ProductUseCase
	LifecycleUC *rma.LifecycleUseCase
	Scheduler   reminderScheduler
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	staff := RequireRole(entity.RoleAdmin, entity.RoleSuperAdmin)
	superAdmin := RequireRole(entity.RoleSuperAdmin)

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	catalogHandler := NewCatalogHandler(deps.CatalogUC)
	// Países (listado público para el registro)
	api.Get("/countries", catalogHandler.ListCountries)

	// Rutas protegidas: JWT + actor vigente (rol y países recargados)
	protected := api.Group("", AuthMiddleware(deps.JWTSecret), LoadActor(deps.UserUC))

	protected.Get("/auth/profile", authHandler.Profile)
	protected.Put("/auth/profile", authHandler.UpdateProfile)
	protected.Put("/auth/change-password", authHandler.ChangePassword)

	countries := protected.Group("/countries")
	countries.Post("/", superAdmin, catalogHandler.CreateCountry)
	countries.Delete("/:id", superAdmin, catalogHandler.DeleteCountry)

	// Catálogo: lectura y escritura acotadas a los países del actor
	productHandler := NewProductHandler(deps.ProductUC)
	brands := protected.Group("/brands")
	brands.Get("/", productHandler.ListBrands)
	brands.Get("/:id", productHandler.GetBrand)
	brands.Post("/", staff, productHandler.CreateBrand)
	brands.Put("/:id", staff, productHandler.UpdateBrand)
	brands.Delete("/:id", staff, productHandler.DeleteBrand)

	products := protected.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/:id", productHandler.GetProduct)
	products.Post("/", staff, productHandler.CreateProduct)
	products.Put("/:id", staff, productHandler.UpdateProduct)
	products.Delete("/:id", staff, productHandler.DeleteProduct)

	// RMAs
	rmas := protected.Group("/rma")
	rmaHandler := NewRMAHandler(deps.LifecycleUC)
	rmas.Get("/", rmaHandler.List)
	rmas.Post("/", rmaHandler.Create)
	rmas.Get("/:id", rmaHandler.Get)
	rmas.Get("/:id/guide", rmaHandler.Guide)
	rmas.Patch("/:id/approve", staff, rmaHandler.Approve)
	rmas.Patch("/:id/reject", staff, rmaHandler.Reject)
	rmas.Patch("/:id/evaluating", staff, rmaHandler.Evaluating)
	rmas.Patch("/:id/payment", staff, rmaHandler.Payment)
	rmas.Patch("/:id/processing", staff, rmaHandler.Processing)
	rmas.Patch("/:id/shipping", staff, rmaHandler.Shipping)
	rmas.Patch("/:id/complete", staff, rmaHandler.Complete)

	// Usuarios (administración)
	users := protected.Group("/users", staff)
	userHandler := NewUserHandler(deps.UserUC)
	users.Get("/", userHandler.List)
	users.Get("/:id", userHandler.GetByID)
	users.Put("/:id/countries", superAdmin, userHandler.AssignCountries)
	users.Put("/:id/role", userHandler.UpdateRole)

	// Scheduler de recordatorios
	if deps.Scheduler != nil {
		admin := protected.Group("/admin/scheduler", staff)
		schedulerHandler := NewSchedulerHandler(deps.Scheduler)
		admin.Get("/status", schedulerHandler.Status)
		admin.Post("/run-manual", superAdmin, schedulerHandler.RunManual)
	}
}
