package models

import (
	"time"
)

// Статусы перемещения грузовика
const (
	MovementServing = "serving" // стоит на точке
	MovementOnMove  = "on_move" // в движении, требуется live-локация
)

// Location географическая точка (широта/долгота в градусах)
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MenuItem позиция меню грузовика
type MenuItem struct {
	ItemID      string  `json:"item_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
}

type Truck struct {
	ID             uint                `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	OwnerUserID    uint                `json:"owner_user_id" gorm:"column:owner_user_id;unique;not null"`
	Name           string              `json:"name" gorm:"column:name;not null;index;type:varchar(255)"`
	IsActive       bool                `json:"is_active" gorm:"column:is_active;default:false"`
	MovementStatus string              `json:"movement_status" gorm:"column:movement_status;default:'serving';type:varchar(20)"`
	// Последняя зафиксированная координата - источник истины для локации
	CurrentLocation   Location            `json:"current_location" gorm:"embedded;embeddedPrefix:location_"`
	LocationUpdatedAt *time.Time          `json:"location_updated_at,omitempty" gorm:"column:location_updated_at;type:timestamp with time zone"`
	Menu              map[string]MenuItem `json:"menu,omitempty" gorm:"column:menu;serializer:json;type:jsonb"`
	CreatedAt         time.Time           `json:"created_at" gorm:"column:created_at;autoCreateTime;type:timestamp with time zone"`
	UpdatedAt         time.Time           `json:"updated_at" gorm:"column:updated_at;autoUpdateTime;type:timestamp with time zone"`
}

// LocationUpdate сообщение с обновлением координаты (и по WebSocket, и по HTTP).
// Поля объявлены указателями, чтобы отличать отсутствующее поле от нулевой
// координаты: сообщение без широты или долготы считается некорректным.
type LocationUpdate struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// Valid проверяет, что обе координаты присутствуют и находятся в допустимых диапазонах
func (u LocationUpdate) Valid() bool {
	if u.Latitude == nil || u.Longitude == nil {
		return false
	}
	return *u.Latitude >= -90 && *u.Latitude <= 90 && *u.Longitude >= -180 && *u.Longitude <= 180
}

// Coords возвращает координаты; вызывать только после успешной Valid
func (u LocationUpdate) Coords() (lat, lon float64) {
	return *u.Latitude, *u.Longitude
}

// NearbySearchRequest запрос поиска ближайших грузовиков. Точка объявлена
// указателем, чтобы запрос без location отклонялся, а не искал в (0,0).
type NearbySearchRequest struct {
	Location *Location `json:"location" binding:"required"`
	RadiusKm float64   `json:"radius_km"`
}

// TruckStatusRequest запрос на открытие/закрытие грузовика
type TruckStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// MovementStatusRequest запрос на смену статуса перемещения грузовика
type MovementStatusRequest struct {
	MovementStatus string `json:"movement_status" binding:"required"`
}

// NearbyTruckResponse один результат поиска ближайших грузовиков
type NearbyTruckResponse struct {
	ID              uint     `json:"id"`
	Name            string   `json:"name"`
	IsActive        bool     `json:"is_active"`
	CurrentLocation Location `json:"current_location"`
	DistanceKm      float64  `json:"distance_km"`
}
