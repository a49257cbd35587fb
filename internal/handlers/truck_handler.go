package handlers

import (
	"context"
	"log"
	"net/http"

	"foodtruck-backend/internal/config"
	"foodtruck-backend/internal/middleware"
	"foodtruck-backend/internal/models"
	"foodtruck-backend/internal/presence"
	"foodtruck-backend/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// getOwnerTruck достает грузовик, привязанный к авторизованному владельцу
func getOwnerTruck(c *gin.Context, db *gorm.DB) (*models.Truck, bool) {
	userID, _ := c.Get("user_id")

	var truck models.Truck
	if err := db.Where("owner_user_id = ?", userID).First(&truck).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Грузовик не привязан к владельцу"})
		return nil, false
	}
	return &truck, true
}

// OwnerTruckDetails возвращает грузовик владельца с последней зафиксированной координатой
func OwnerTruckDetails(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		truck, ok := getOwnerTruck(c, db)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, truck)
	}
}

// OwnerToggleStatus открывает или закрывает грузовик для заказов.
// Сначала фиксируем статус в БД, затем обновляем кэшированные атрибуты,
// чтобы фильтрация поиска сразу видела актуальный флаг.
func OwnerToggleStatus(db *gorm.DB, cache *presence.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		truck, ok := getOwnerTruck(c, db)
		if !ok {
			return
		}

		var req models.TruckStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		truck.IsActive = *req.IsActive
		if err := db.Save(truck).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при сохранении статуса"})
			return
		}

		if err := cache.SetAttributes(context.Background(), truck.ID, &truck.Name, &truck.IsActive); err != nil {
			// Кэш догонит на первом же heartbeat сессии - не роняем запрос
			log.Printf("OwnerToggleStatus: ошибка обновления кэша для грузовика %d: %v", truck.ID, err)
		}

		c.JSON(http.StatusOK, truck)
	}
}

// OwnerUpdateMovement переключает статус перемещения грузовика: стоит на
// точке (serving) или в движении (on_move). Грузовику в движении нужна
// живая сессия приема локаций, иначе он выпадет из выдачи поиска по TTL.
func OwnerUpdateMovement(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.MovementStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.MovementStatus != models.MovementServing && req.MovementStatus != models.MovementOnMove {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый статус перемещения"})
			return
		}

		truck, ok := getOwnerTruck(c, db)
		if !ok {
			return
		}

		truck.MovementStatus = req.MovementStatus
		if err := db.Save(truck).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при сохранении статуса перемещения"})
			return
		}

		c.JSON(http.StatusOK, truck)
	}
}

// OwnerUpdateLocation HTTP-запасной путь обновления координаты с той же
// сквозной записью, что и у WebSocket сессии: сначала БД, потом кэш
func OwnerUpdateLocation(db *gorm.DB, trucks *store.TruckStore, cache *presence.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		truck, ok := getOwnerTruck(c, db)
		if !ok {
			return
		}

		var update models.LocationUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !update.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Координаты вне допустимого диапазона"})
			return
		}
		lat, lon := update.Coords()

		ctx := context.Background()

		if err := trucks.CommitCoordinate(ctx, truck.ID, lat, lon); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при фиксации координаты"})
			return
		}

		if err := cache.Upsert(ctx, truck.ID, lat, lon); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении кэша присутствия"})
			return
		}

		if err := cache.SetAttributes(ctx, truck.ID, &truck.Name, &truck.IsActive); err != nil {
			log.Printf("OwnerUpdateLocation: ошибка обновления атрибутов для грузовика %d: %v", truck.ID, err)
		}

		c.Status(http.StatusNoContent)
	}
}

// SearchNearby ищет открытые грузовики в радиусе от точки покупателя.
// Превышение потолка радиуса - ошибка запроса; пустая выдача - нормальный результат.
func SearchNearby(cache *presence.Cache, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NearbySearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if req.RadiusKm <= 0 {
			req.RadiusKm = 5
		}
		if req.RadiusKm > cfg.MaxSearchRadiusKm {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Превышен максимальный радиус поиска"})
			return
		}

		middleware.NearbySearchesTotal.Inc()

		found, err := cache.NearbyActive(context.Background(), req.Location.Latitude, req.Location.Longitude, req.RadiusKm)
		if err != nil {
			log.Printf("SearchNearby: ошибка запроса к кэшу присутствия: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Кэш присутствия недоступен"})
			return
		}

		trucks := make([]models.NearbyTruckResponse, 0, len(found))
		for _, t := range found {
			trucks = append(trucks, models.NearbyTruckResponse{
				ID:       t.ID,
				Name:     t.Name,
				IsActive: true,
				CurrentLocation: models.Location{
					Latitude:  t.Latitude,
					Longitude: t.Longitude,
				},
				DistanceKm: t.DistanceKm,
			})
		}

		c.JSON(http.StatusOK, gin.H{"trucks": trucks})
	}
}

// OwnerGetMenu возвращает текущее меню грузовика владельца
func OwnerGetMenu(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		truck, ok := getOwnerTruck(c, db)
		if !ok {
			return
		}

		if truck.Menu == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Меню для этого грузовика не задано"})
			return
		}
		c.JSON(http.StatusOK, truck.Menu)
	}
}

// OwnerPatchMenuItem добавляет позицию меню или обновляет существующую.
// Идентификатор новой позиции выдается сервером.
func OwnerPatchMenuItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		truck, ok := getOwnerTruck(c, db)
		if !ok {
			return
		}

		var item models.MenuItem
		if err := c.ShouldBindJSON(&item); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if item.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Позиция меню должна содержать название"})
			return
		}

		if item.ItemID == "" {
			item.ItemID = uuid.NewString()
		}

		if truck.Menu == nil {
			truck.Menu = make(map[string]models.MenuItem)
		}
		truck.Menu[item.ItemID] = item

		if err := db.Save(truck).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при сохранении меню"})
			return
		}

		c.JSON(http.StatusOK, truck.Menu)
	}
}

// OwnerDeleteMenuItem удаляет позицию меню по идентификатору
func OwnerDeleteMenuItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		truck, ok := getOwnerTruck(c, db)
		if !ok {
			return
		}

		itemID := c.Param("item_id")
		if truck.Menu == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Позиция меню не найдена"})
			return
		}
		if _, exists := truck.Menu[itemID]; !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "Позиция меню не найдена"})
			return
		}

		delete(truck.Menu, itemID)

		if err := db.Save(truck).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при сохранении меню"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// GetTruckMenu возвращает меню грузовика по его идентификатору (для покупателей)
func GetTruckMenu(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var truck models.Truck
		if err := db.First(&truck, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Грузовик не найден"})
			return
		}

		if truck.Menu == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Меню для этого грузовика недоступно"})
			return
		}
		c.JSON(http.StatusOK, truck.Menu)
	}
}
