package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/6231368521/VacQ/internal/handlers"
	"github.com/6231368521/VacQ/internal/middleware"
	"github.com/6231368521/VacQ/internal/service"
	"github.com/6231368521/VacQ/internal/services"
	"github.com/6231368521/VacQ/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// --- Database connection ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("MONGO_URI")))
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())
	db := client.Database(os.Getenv("MONGO_DATABASE"))
	logger.Info("Connected to MongoDB", zap.String("database", db.Name()))

	// --- Stores and services ---
	appointmentStore := store.NewAppointmentStore(db)
	hospitalStore := store.NewHospitalStore(db)
	userStore := store.NewUserStore(db)
	if err := userStore.EnsureIndexes(ctx); err != nil {
		logger.Warn("Could not ensure user indexes", zap.Error(err))
	}

	appointmentSvc := service.NewAppointmentService(appointmentStore, hospitalStore, logger)
	notificationSvc := services.NewNotificationService(logger)

	h := handlers.NewHandler(appointmentSvc, hospitalStore, userStore, notificationSvc, logger)

	// --- Router ---
	r := gin.Default()

	allowedOrigin := os.Getenv("FRONTEND_ORIGIN")
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{allowedOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: allowedOrigin != "*",
	}))

	api := r.Group("/api/v1")
	{
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.GET("/auth/me", middleware.Protect(), h.GetMe)

		api.GET("/hospitals", h.GetHospitals)
		api.POST("/hospitals", middleware.Protect(), middleware.RequireAdmin(), h.CreateHospital)
		api.GET("/hospitals/:hospitalId", h.GetHospital)
		api.PUT("/hospitals/:hospitalId", middleware.Protect(), middleware.RequireAdmin(), h.UpdateHospital)
		api.DELETE("/hospitals/:hospitalId", middleware.Protect(), middleware.RequireAdmin(), h.DeleteHospital)

		api.GET("/hospitals/:hospitalId/appointments", middleware.Protect(), h.GetAppointments)
		api.POST("/hospitals/:hospitalId/appointments", middleware.Protect(), h.CreateAppointment)

		api.GET("/appointments", middleware.Protect(), h.GetAppointments)
		api.GET("/appointments/:id", h.GetAppointment)
		api.PUT("/appointments/:id", middleware.Protect(), h.UpdateAppointment)
		api.DELETE("/appointments/:id", middleware.Protect(), h.DeleteAppointment)
	}

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "5000"
	}
	logger.Info("Starting server", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
