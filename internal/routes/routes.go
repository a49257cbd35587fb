package routes

import (
	"foodtruck-backend/internal/config"
	"foodtruck-backend/internal/handlers"
	"foodtruck-backend/internal/middleware"
	"foodtruck-backend/internal/models"
	"foodtruck-backend/internal/notify"
	"foodtruck-backend/internal/presence"
	"foodtruck-backend/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes настраивает HTTP маршруты API
func SetupRoutes(api *gin.RouterGroup, db *gorm.DB, trucks *store.TruckStore, cache *presence.Cache, bus *notify.Bus, cfg *config.Config) {
	// Публичные маршруты для аутентификации
	api.POST("/register/customer", handlers.RegisterCustomer(db))
	api.POST("/register/truck", handlers.RegisterTruckOwner(db))
	api.POST("/login", handlers.Login(db))

	// Публичный поиск и меню (для витрины покупателя токен не обязателен)
	api.POST("/trucks/nearby", handlers.SearchNearby(cache, cfg))
	api.GET("/truck/:id/menu", handlers.GetTruckMenu(db))

	// Маршруты владельца грузовика
	owner := api.Group("/owner")
	owner.Use(middleware.JWTAuth(), middleware.RequireRole(models.RoleTruck))
	{
		owner.GET("/truck", handlers.OwnerTruckDetails(db))
		owner.PUT("/status", handlers.OwnerToggleStatus(db, cache))
		owner.PUT("/movement", handlers.OwnerUpdateMovement(db))
		owner.PUT("/location", handlers.OwnerUpdateLocation(db, trucks, cache))

		owner.GET("/menu", handlers.OwnerGetMenu(db))
		owner.PATCH("/menu/items", handlers.OwnerPatchMenuItem(db))
		owner.DELETE("/menu/items/:item_id", handlers.OwnerDeleteMenuItem(db))

		owner.GET("/orders/pending", handlers.OwnerPendingOrders(db))
		owner.PUT("/orders/:id/status", handlers.OwnerUpdateOrderStatus(db, bus))
	}

	// Маршруты покупателя
	customer := api.Group("")
	customer.Use(middleware.JWTAuth(), middleware.RequireRole(models.RoleCustomer))
	{
		customer.POST("/orders/place", handlers.PlaceOrder(db, bus))
		customer.GET("/orders", handlers.CustomerOrders(db))
		customer.GET("/orders/:id", handlers.CustomerOrderDetails(db))
	}
}
