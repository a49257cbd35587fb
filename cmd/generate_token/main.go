package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
)

type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Утилита для выпуска токена вручную - удобно для проверки WebSocket
// эндпоинтов через wscat или curl
func main() {
	userID := flag.Uint("user", 0, "ID пользователя")
	role := flag.String("role", "customer", "Роль пользователя (customer или truck)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET не задан")
	}

	claims := Claims{
		UserID: *userID,
		Role:   *role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().AddDate(0, 1, 0)), // Токен действителен 1 месяц
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Fatalf("Ошибка при создании токена: %v", err)
	}

	fmt.Println(tokenString)
}
