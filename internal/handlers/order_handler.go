package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"foodtruck-backend/internal/models"
	"foodtruck-backend/internal/notify"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// publishOrderEvent сериализует событие и отправляет его в шину уведомлений.
// Доставка best-effort: заказ уже зафиксирован в БД, поэтому сбой публикации
// не роняет запрос.
func publishOrderEvent(bus *notify.Bus, channel string, event notify.OrderEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Ошибка сериализации события заказа %d: %v", event.OrderID, err)
		return
	}
	if err := bus.Publish(context.Background(), channel, payload); err != nil {
		log.Printf("Ошибка публикации события заказа %d в канал %s: %v", event.OrderID, channel, err)
	}
}

// PlaceOrder создает заказ покупателя и уведомляет владельца грузовика
func PlaceOrder(db *gorm.DB, bus *notify.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		customerID := userID.(uint)

		var req models.PlaceOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Заказ принимается только для открытого грузовика
		var truck models.Truck
		if err := db.Where("id = ? AND is_active = ?", req.TruckID, true).First(&truck).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Грузовик не найден или закрыт"})
			return
		}

		order := models.Order{
			TruckID:    req.TruckID,
			CustomerID: customerID,
			Items:      req.Items,
			Status:     models.OrderPending,
		}

		if err := db.Create(&order).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании заказа"})
			return
		}

		log.Printf("Создан заказ %d для грузовика %d от покупателя %d", order.ID, order.TruckID, customerID)

		publishOrderEvent(bus, notify.OrderChannel(truck.ID), notify.OrderEvent{
			OrderID:    order.ID,
			Status:     order.Status,
			Message:    fmt.Sprintf("New order #%d received!", order.ID),
			CustomerID: customerID,
		})

		c.JSON(http.StatusCreated, order)
	}
}

// OwnerPendingOrders возвращает заказы грузовика в статусах pending и preparing,
// развернутые по позициям меню для панели владельца
func OwnerPendingOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		truck, ok := getOwnerTruck(c, db)
		if !ok {
			return
		}

		var orders []models.Order
		err := db.Where("truck_id = ? AND status IN ?", truck.ID, []string{models.OrderPending, models.OrderPreparing}).
			Order("created_at").
			Find(&orders).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении заказов"})
			return
		}

		items := make([]models.PendingOrderItem, 0)
		for _, order := range orders {
			for _, item := range order.Items {
				menuItem := truck.Menu[item.ItemID]
				items = append(items, models.PendingOrderItem{
					OrderID:  order.ID,
					ItemID:   item.ItemID,
					Name:     menuItem.Name,
					Quantity: item.Quantity,
					Price:    menuItem.Price,
					Status:   order.Status,
				})
			}
		}

		c.JSON(http.StatusOK, items)
	}
}

// OwnerUpdateOrderStatus меняет статус заказа и уведомляет покупателя
func OwnerUpdateOrderStatus(db *gorm.DB, bus *notify.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		truck, ok := getOwnerTruck(c, db)
		if !ok {
			return
		}

		var req models.OrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Заказ должен принадлежать грузовику этого владельца
		var order models.Order
		if err := db.Where("id = ? AND truck_id = ?", c.Param("id"), truck.ID).First(&order).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Заказ не найден или принадлежит другому грузовику"})
			return
		}

		order.Status = req.Status
		if err := db.Save(&order).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении статуса заказа"})
			return
		}

		// Покупателя уведомляем только о значимых переходах статуса
		switch order.Status {
		case models.OrderPreparing, models.OrderReadyForPickup, models.OrderFinished:
			publishOrderEvent(bus, notify.StatusChannel(order.CustomerID), notify.OrderEvent{
				OrderID: order.ID,
				Status:  order.Status,
				Message: fmt.Sprintf("Your order #%d is now %s.", order.ID, order.Status),
			})
		}

		c.JSON(http.StatusOK, order)
	}
}

// CustomerOrders возвращает все заказы покупателя, новые первыми
func CustomerOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		var orders []models.Order
		if err := db.Where("customer_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении заказов"})
			return
		}

		c.JSON(http.StatusOK, orders)
	}
}

// CustomerOrderDetails возвращает один заказ покупателя
func CustomerOrderDetails(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		var order models.Order
		if err := db.Where("id = ? AND customer_id = ?", c.Param("id"), userID).First(&order).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Заказ не найден"})
			return
		}

		c.JSON(http.StatusOK, order)
	}
}
