package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	// Application Layer
	appService "shareminder/internal/application/service"

	// Infrastructure Layer
	"shareminder/internal/domain/constant"
	"shareminder/internal/infrastructure/database/sqlite"
	discordClient "shareminder/internal/infrastructure/discord"
	lineClient "shareminder/internal/infrastructure/line"
	"shareminder/internal/infrastructure/scheduler"

	// Interfaces Layer
	"shareminder/internal/interfaces/api/handler"
	"shareminder/internal/interfaces/api/router"

	// Packages
	appLogger "shareminder/internal/pkg/logger"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file
)

func gracefulShutdown(apiServer *http.Server, sched *scheduler.Scheduler, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	log.Println("Stopping scheduler...")
	sched.Stop()
	log.Println("Scheduler stopped.")

	log.Println("Closing database connection...")
	if err := sqlite.CloseDB(); err != nil {
		log.Printf("Error closing database: %v", err)
	} else {
		log.Println("Database connection closed.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")
	done <- true
}

func main() {
	// --- Initialization ---
	appLog := appLogger.New()
	appLog.Info("Logger initialized.")

	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
		appLog.Warn("PORT environment variable not set, defaulting to 8080")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		appLog.Error("Invalid PORT environment variable", err)
		os.Exit(1)
	}

	sweepInterval := os.Getenv("SWEEP_INTERVAL")
	if sweepInterval == "" {
		sweepInterval = "1m"
	}
	if _, err := time.ParseDuration(sweepInterval); err != nil {
		appLog.Error("Invalid SWEEP_INTERVAL environment variable", err)
		os.Exit(1)
	}

	// --- Infrastructure ---
	db := sqlite.NewDB()
	store := sqlite.NewStore(db)
	appLog.Info("Database and blob store initialized.")

	cronScheduler := scheduler.NewScheduler(appLog)
	sharers := appService.ShareRegistry{
		constant.PlatformLine:    lineClient.NewClient(appLog),
		constant.PlatformDiscord: discordClient.NewClient(appLog),
	}
	appLog.Info("Scheduler and share clients initialized.")

	// --- Application Services ---
	reminderSvc := appService.NewReminderService(store, cronScheduler, sharers, appLog)
	appLog.Info("Lifecycle engine initialized.")

	// --- Reconcile persisted state with the fresh scheduler ---
	if err := reminderSvc.Reconcile(context.Background()); err != nil {
		// Log the error but continue starting the server.
		appLog.Error("Failed to reconcile bindings on startup", err)
	}
	// Process anything that came due while the process was down.
	if _, err := reminderSvc.DueSweep(context.Background(), time.Now()); err != nil {
		appLog.Error("Startup sweep failed", err)
	}

	// --- Recurring sweep trigger ---
	if _, err := cronScheduler.AddRecurring("@every "+sweepInterval, func() {
		if _, err := reminderSvc.DueSweep(context.Background(), time.Now()); err != nil {
			appLog.Error("Recurring sweep failed", err)
		}
	}); err != nil {
		appLog.Error("Failed to register recurring sweep", err)
		os.Exit(1)
	}

	// --- API Handlers & Router ---
	reminderHandler := handler.NewReminderHandler(reminderSvc, appLog)
	echoRouter := router.NewRouter(&router.Config{
		ReminderHandler: reminderHandler,
		Logger:          appLog,
	})

	// --- HTTP Server ---
	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      echoRouter,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// --- Start Server & Shutdown Handling ---
	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, cronScheduler, done)

	appLog.Info(fmt.Sprintf("Server starting on port %d", port))
	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		appLog.Error("HTTP server ListenAndServe error", err)
		panic(fmt.Sprintf("http server error: %s", err))
	}

	<-done
	appLog.Info("Graceful shutdown complete.")
}
