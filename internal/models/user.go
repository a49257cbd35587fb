package models

import (
	"time"
)

// Роли пользователей в системе
const (
	RoleCustomer = "customer"
	RoleTruck    = "truck"
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	Email        string    `json:"email" gorm:"column:email;unique;not null;type:varchar(255)"`
	PhoneNumber  string    `json:"phoneNumber" gorm:"column:phone_number;unique;not null;type:varchar(20)"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null;type:text"`
	Role         string    `json:"role" gorm:"column:role;default:'customer';type:varchar(20)"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime;type:timestamp with time zone"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime;type:timestamp with time zone"`
	Truck        *Truck    `json:"truck,omitempty" gorm:"foreignKey:OwnerUserID"`
}

// RegisterCustomerRequest структура для регистрации покупателя
type RegisterCustomerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
}

// RegisterTruckOwnerRequest структура для регистрации владельца грузовика
type RegisterTruckOwnerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
	TruckName   string `json:"truck_name" binding:"required"`
}

// LoginRequest структура для входа
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse ответ с JWT токеном
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
