package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodtruck-backend/internal/config"
	"foodtruck-backend/internal/db"
	"foodtruck-backend/internal/middleware"
	"foodtruck-backend/internal/models"
	"foodtruck-backend/internal/notify"
	"foodtruck-backend/internal/presence"
	"foodtruck-backend/internal/routes"
	"foodtruck-backend/internal/store"
	"foodtruck-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Устанавливаем режим релиза для продакшена
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	cfg := config.Load()

	// Подключение к базе данных
	database, err := db.ConnectWithRetry(cfg.DSN(), 5, 5*time.Second)
	if err != nil {
		log.Fatal("Ошибка подключения к базе данных:", err)
	}

	// Подключение к Redis - без него кэш присутствия и шина уведомлений не работают
	redisClient, err := db.NewRedisClient(cfg.RedisAddr(), cfg.RedisPassword)
	if err != nil {
		log.Fatal("Ошибка подключения к Redis:", err)
	}
	defer redisClient.Close()
	log.Println("Успешное подключение к Redis")

	// Автоматическая миграция моделей
	if err := database.AutoMigrate(
		&models.User{},
		&models.Truck{},
		&models.Order{},
	); err != nil {
		log.Fatal("Ошибка миграции базы данных:", err)
	}

	// Сервисы присутствия и уведомлений - явные объекты, а не глобальные переменные
	cache := presence.NewCache(redisClient, cfg.PresenceTTL)
	bus := notify.NewBus(redisClient)
	trucks := store.NewTruckStore(database)

	// Создаем Gin роутер
	r := gin.New()

	// Используем наш собственный логгер и middleware для восстановления после паники
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// Добавляем middleware для сбора метрик
	r.Use(middleware.PrometheusMiddleware())

	// Настройка доверенных прокси
	r.SetTrustedProxies([]string{"127.0.0.1"})

	// Настройка CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Добавляем эндпоинт для метрик Prometheus
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Проверка работоспособности системы
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// API группа
	api := r.Group("/api/v1")
	routes.SetupRoutes(api, database, trucks, cache, bus, cfg)

	// WebSocket маршруты: прием локаций и доставка уведомлений
	r.GET("/ws/location/update", websocket.LocationIngestHandler(trucks, cache))
	r.GET("/ws/notifications", websocket.NotificationsHandler(bus, trucks))

	// Создаем HTTP сервер с настроенными таймаутами
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Сервер запущен на порту %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Ошибка запуска сервера: %s", err)
		}
	}()

	// Ожидаем сигнал для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Получен сигнал завершения, закрываем соединения...")

	// Даем 30 секунд на завершение текущих запросов
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Ошибка при graceful shutdown: %s", err)
	}

	log.Println("Сервер корректно завершил работу")
}
