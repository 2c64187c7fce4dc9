package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/api/controllers"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/api/middleware"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/events"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/inventory"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/notifications"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/orders"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/products"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/reservations"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/tables"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/config"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
	pkgredis "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/redis"
)

// Deps carries everything the router mounts.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Orders        orders.Service
	Reservations  reservations.Service
	Tables        tables.Service
	Inventory     inventory.Service
	Products      products.Service
	Notifications notifications.Service
	Events        events.Service
	Idempotency   pkgredis.IdempotencyStore
	HealthTargets []controllers.HealthTarget
	Metrics       http.Handler
}

// New assembles the HTTP surface. Staff routes live behind restaurant scope
// and a role gate; customer routes only need a valid token.
func New(deps Deps) chi.Router {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.CORS())

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, deps.HealthTargets...))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Auth(cfg.JWT, logg))
		api.Use(middleware.Idempotency(deps.Idempotency, logg))

		api.Route("/orders", func(or chi.Router) {
			or.Post("/", controllers.CreateOrder(deps.Orders, logg))
			or.Get("/mine", controllers.ListMyOrders(deps.Orders, logg))
			or.Get("/{orderID}", controllers.GetOrder(deps.Orders, logg))
			or.Post("/{orderID}/cancel", controllers.CancelOrder(deps.Orders, logg))

			or.Group(func(staff chi.Router) {
				staff.Use(middleware.RestaurantContext(logg))
				staff.Use(middleware.RequireAnyRole(logg, enums.RoleStaff.String(), enums.RoleAdmin.String()))
				staff.Get("/", controllers.ListOrders(deps.Orders, logg))
				staff.Patch("/{orderID}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
				staff.Post("/{orderID}/invoice", controllers.GenerateInvoice(deps.Orders, logg))
			})
		})

		api.Route("/reservations", func(rr chi.Router) {
			rr.Post("/", controllers.CreateReservation(deps.Reservations, logg))
			rr.Get("/mine", controllers.ListMyReservations(deps.Reservations, logg))
			rr.Get("/{reservationID}", controllers.GetReservation(deps.Reservations, logg))
			rr.Post("/{reservationID}/cancel", controllers.CancelReservation(deps.Reservations, logg))

			rr.Group(func(staff chi.Router) {
				staff.Use(middleware.RestaurantContext(logg))
				staff.Use(middleware.RequireAnyRole(logg, enums.RoleStaff.String(), enums.RoleAdmin.String()))
				staff.Get("/", controllers.ListReservations(deps.Reservations, logg))
			})
		})

		api.Route("/events", func(er chi.Router) {
			er.Get("/", controllers.ListEvents(deps.Events, logg))
			er.Get("/{eventID}", controllers.GetEvent(deps.Events, logg))

			er.Group(func(staff chi.Router) {
				staff.Use(middleware.RestaurantContext(logg))
				staff.Use(middleware.RequireAnyRole(logg, enums.RoleStaff.String(), enums.RoleAdmin.String()))
				staff.Post("/", controllers.CreateEvent(deps.Events, logg))
				staff.Patch("/{eventID}", controllers.UpdateEvent(deps.Events, logg))
				staff.Post("/{eventID}/cancel", controllers.CancelEvent(deps.Events, logg))
				staff.Delete("/{eventID}", controllers.DeleteEvent(deps.Events, logg))
			})
		})

		api.Route("/notifications", func(nr chi.Router) {
			nr.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			nr.Post("/{notificationID}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			nr.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})

		api.Group(func(staff chi.Router) {
			staff.Use(middleware.RestaurantContext(logg))
			staff.Use(middleware.RequireAnyRole(logg, enums.RoleStaff.String(), enums.RoleAdmin.String()))

			staff.Route("/tables", func(tr chi.Router) {
				tr.Post("/", controllers.CreateTable(deps.Tables, logg))
				tr.Get("/", controllers.ListTables(deps.Tables, logg))
				tr.Get("/{tableID}", controllers.GetTable(deps.Tables, logg))
				tr.Post("/{tableID}/release", controllers.ReleaseTable(deps.Tables, logg))
				tr.Post("/{tableID}/occupy", controllers.OccupyTable(deps.Tables, logg))
			})

			staff.Route("/inventory", func(ir chi.Router) {
				ir.Post("/", controllers.CreateInventoryItem(deps.Inventory, logg))
				ir.Get("/", controllers.ListInventory(deps.Inventory, logg))
				ir.Get("/{itemID}", controllers.GetInventoryItem(deps.Inventory, logg))
				ir.Patch("/{itemID}", controllers.AdjustInventoryItem(deps.Inventory, logg))
				ir.Delete("/{itemID}", controllers.DeactivateInventoryItem(deps.Inventory, logg))
			})

			staff.Route("/products", func(pr chi.Router) {
				pr.Post("/", controllers.CreateProduct(deps.Products, logg))
				pr.Get("/", controllers.ListProducts(deps.Products, logg))
				pr.Get("/{productID}", controllers.GetProduct(deps.Products, logg))
				pr.Patch("/{productID}", controllers.UpdateProduct(deps.Products, logg))
				pr.Delete("/{productID}", controllers.DeleteProduct(deps.Products, logg))
			})
		})
	})

	return r
}
