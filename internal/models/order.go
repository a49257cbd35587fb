package models

import (
	"time"
)

// Статусы жизненного цикла заказа
const (
	OrderPending        = "pending"
	OrderPreparing      = "preparing"
	OrderReadyForPickup = "ready_for_pickup"
	OrderFinished       = "finished"
	OrderCancelled      = "cancelled"
)

// OrderItem выбранная позиция меню в заказе
type OrderItem struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

type Order struct {
	ID         uint        `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	TruckID    uint        `json:"truck_id" gorm:"column:truck_id;not null;index"`
	CustomerID uint        `json:"customer_id" gorm:"column:customer_id;not null;index"`
	Items      []OrderItem `json:"items" gorm:"column:items;serializer:json;type:jsonb;not null"`
	Status     string      `json:"status" gorm:"column:status;default:'pending';type:varchar(20)"`
	CreatedAt  time.Time   `json:"created_at" gorm:"column:created_at;autoCreateTime;type:timestamp with time zone"`
	UpdatedAt  time.Time   `json:"updated_at" gorm:"column:updated_at;autoUpdateTime;type:timestamp with time zone"`

	// Связи
	Truck    Truck `json:"-" gorm:"foreignKey:TruckID"`
	Customer User  `json:"-" gorm:"foreignKey:CustomerID"`
}

// PlaceOrderRequest запрос покупателя на создание заказа
type PlaceOrderRequest struct {
	TruckID uint        `json:"truck_id" binding:"required"`
	Items   []OrderItem `json:"items" binding:"required,min=1,dive"`
}

// OrderStatusRequest запрос владельца на смену статуса заказа
type OrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending preparing ready_for_pickup finished cancelled"`
}

// PendingOrderItem развернутая позиция заказа для панели владельца
type PendingOrderItem struct {
	OrderID  uint    `json:"order_id"`
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Status   string  `json:"status"`
}
