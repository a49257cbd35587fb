package handlers

import (
	"log"
	"net/http"

	"foodtruck-backend/internal/models"
	"foodtruck-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterCustomer регистрирует покупателя и сразу выдает токен
func RegisterCustomer(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RegisterCustomerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Проверяем, что пользователь с таким email или телефоном еще не существует
		var existing models.User
		err := db.Where("email = ? OR phone_number = ?", req.Email, req.PhoneNumber).First(&existing).Error
		if err == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Пользователь с таким email или телефоном уже существует"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обработке пароля"})
			return
		}

		user := models.User{
			Email:        req.Email,
			PhoneNumber:  req.PhoneNumber,
			PasswordHash: string(hash),
			Role:         models.RoleCustomer,
		}

		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании пользователя"})
			return
		}

		log.Printf("Зарегистрирован новый покупатель: id=%d, email=%s", user.ID, user.Email)

		token, err := utils.GenerateJWT(user.ID, user.Role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании токена"})
			return
		}

		c.JSON(http.StatusCreated, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
	}
}

// RegisterTruckOwner регистрирует владельца и создает привязанный грузовик
func RegisterTruckOwner(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RegisterTruckOwnerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var existing models.User
		err := db.Where("email = ? OR phone_number = ?", req.Email, req.PhoneNumber).First(&existing).Error
		if err == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Пользователь с таким email или телефоном уже существует"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обработке пароля"})
			return
		}

		user := models.User{
			Email:        req.Email,
			PhoneNumber:  req.PhoneNumber,
			PasswordHash: string(hash),
			Role:         models.RoleTruck,
		}

		// Пользователь и грузовик создаются в одной транзакции
		tx := db.Begin()

		if err := tx.Create(&user).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании пользователя"})
			return
		}

		truck := models.Truck{
			OwnerUserID:    user.ID,
			Name:           req.TruckName,
			IsActive:       false,
			MovementStatus: models.MovementServing,
		}

		if err := tx.Create(&truck).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании грузовика"})
			return
		}

		if err := tx.Commit().Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при сохранении изменений"})
			return
		}

		log.Printf("Зарегистрирован владелец грузовика: user_id=%d, truck_id=%d", user.ID, truck.ID)

		token, err := utils.GenerateJWT(user.ID, user.Role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании токена"})
			return
		}

		c.JSON(http.StatusCreated, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
	}
}

// Login проверяет учетные данные и выдает JWT токен
func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверный email или пароль"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			log.Printf("Неудачная попытка входа: %s", req.Email)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверный email или пароль"})
			return
		}

		token, err := utils.GenerateJWT(user.ID, user.Role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании токена"})
			return
		}

		c.JSON(http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
	}
}
