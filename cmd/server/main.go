package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"officehub-backend/internal/config"
	"officehub-backend/internal/handlers"
	"officehub-backend/internal/router"
	"officehub-backend/internal/services"
)

func main() {
	log.Println("🚀 Starting OfficeHub Assistant Backend...")

	// ──── Step 1: Load & Validate Environment Variables ────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("✗ Configuration invalid: %v", err)
	}
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize Azure OpenAI Client ────
	azureService, err := services.NewAzureService(
		cfg.AzureOpenAIEndpoint,
		cfg.AzureOpenAIDeployment,
		cfg.AzureAPIVersion,
		cfg.AzureOpenAIKey,
		services.WithSimulateDelay(time.Duration(cfg.StreamSimulateDelayMs)*time.Millisecond),
	)
	if err != nil {
		log.Fatalf("✗ Azure OpenAI client initialization failed: %v", err)
	}
	log.Println("✓ Azure OpenAI client initialized")

	// ──── Step 3: Initialize Handlers & Router ────
	chatHandler := handlers.NewChatHandler(azureService)
	r := router.New(chatHandler, cfg.FrontendURL)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: streaming replies must outlive any fixed deadline.
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ OfficeHub Assistant ready on http://localhost:%s", cfg.Port)
	log.Printf("  Chat:   POST http://localhost:%s/api/ai", cfg.Port)
	log.Printf("  Stream: POST http://localhost:%s/api/ai_stream", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
