package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/service"
	"github.com/utafrali/backoffice/pkg/health"
	"github.com/utafrali/backoffice/pkg/middleware"
)

// Managers bundles the application services the router dispatches to.
type Managers struct {
	Categories    service.CategoryManager
	Products      service.ProductManager
	Manufacturers service.ManufacturerManager
	Invoices      service.InvoiceManager
	Users         service.UserManager
	Roles         service.RoleManager
}

// RouterConfig carries the transport settings.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	LoginRateLimit float64
	LoginRateBurst int
	SecureCookies  bool
	// Registry receives the HTTP metrics. Nil uses the default registerer.
	Registry prometheus.Registerer
	// Gatherer serves /metrics. Nil uses the default gatherer.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a chi router with all back office routes registered.
func NewRouter(
	managers Managers,
	validateToken middleware.TokenValidator,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.NewHTTPMetrics("backoffice", reg).Middleware)

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	authenticated := middleware.Auth(validateToken)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	authHandler := NewAuthHandler(managers.Users, logger, cfg.SecureCookies)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		r.With(middleware.RateLimit(cfg.LoginRateLimit, cfg.LoginRateBurst, logger)).Post("/login", authHandler.Login)
		r.With(authenticated).Post("/logout", authHandler.Logout)
	})

	categoryHandler := NewCategoryHandler(managers.Categories, logger)
	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(authenticated)

		r.Get("/", categoryHandler.ListCategories)
		r.Get("/tree", categoryHandler.CategoryTree)
		r.Get("/by-name/{name}", categoryHandler.GetCategoryByName)
		r.Get("/{id}", categoryHandler.GetCategory)
		r.Get("/{id}/parent", categoryHandler.GetParent)
		r.Get("/{id}/children", categoryHandler.ListChildren)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/", categoryHandler.InsertCategory)
			r.Put("/{id}", categoryHandler.UpdateCategory)
			r.Delete("/{id}", categoryHandler.DeleteCategory)
		})
	})

	productHandler := NewProductHandler(managers.Products, logger)
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(authenticated)

		r.Get("/", productHandler.ListProducts)
		r.Get("/{id}", productHandler.GetProduct)
		r.Get("/{id}/manufacturers", productHandler.ListManufacturers)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/", productHandler.CreateProduct)
			r.Put("/{id}", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeleteProduct)
		})
	})

	manufacturerHandler := NewManufacturerHandler(managers.Manufacturers, logger)
	r.Route("/api/v1/manufacturers", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(authenticated)

		r.Get("/", manufacturerHandler.ListManufacturers)
		r.Get("/{id}", manufacturerHandler.GetManufacturer)
		r.Get("/{id}/products", manufacturerHandler.ListProducts)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/", manufacturerHandler.CreateManufacturer)
			r.Put("/{id}", manufacturerHandler.UpdateManufacturer)
			r.Delete("/{id}", manufacturerHandler.DeleteManufacturer)
			r.Post("/{id}/products/{productId}", manufacturerHandler.AddProduct)
			r.Delete("/{id}/products/{productId}", manufacturerHandler.RemoveProduct)
		})
	})

	invoiceHandler := NewInvoiceHandler(managers.Invoices, logger)
	r.Route("/api/v1/invoices", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(authenticated)

		r.Get("/", invoiceHandler.ListInvoices)
		r.Get("/by-code/{code}", invoiceHandler.GetInvoiceByCode)
		r.Get("/{id}", invoiceHandler.GetInvoice)
		r.Get("/{id}/total", invoiceHandler.GetTotal)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/", invoiceHandler.CreateInvoice)
			r.Put("/{id}", invoiceHandler.UpdateInvoice)
			r.Delete("/{id}", invoiceHandler.DeleteInvoice)
			r.Post("/{id}/items", invoiceHandler.AssignProduct)
			r.Delete("/{id}/items/{productId}", invoiceHandler.RemoveLineItem)
			r.Post("/{id}/pay", invoiceHandler.PayInvoice)
			r.Post("/{id}/cancel", invoiceHandler.CancelInvoice)
		})
	})

	userHandler := NewUserHandler(managers.Users, logger)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(authenticated)

		r.Get("/me", userHandler.GetMe)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", userHandler.ListUsers)
			r.Post("/", userHandler.CreateUser)
			r.Get("/{id}", userHandler.GetUser)
			r.Put("/{id}", userHandler.UpdateUser)
			r.Delete("/{id}", userHandler.DeleteUser)
			r.Put("/{id}/roles/{roleName}", userHandler.AssignRole)
			r.Delete("/{id}/roles/{roleName}", userHandler.RemoveRole)
		})
	})

	roleHandler := NewRoleHandler(managers.Roles, logger)
	r.Route("/api/v1/roles", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(authenticated)

		r.Get("/", roleHandler.ListRoles)
		r.Get("/{id}", roleHandler.GetRole)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/", roleHandler.CreateRole)
			r.Put("/{id}", roleHandler.UpdateRole)
			r.Delete("/{id}", roleHandler.DeleteRole)
		})
	})

	return r
}
