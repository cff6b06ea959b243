package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farmdirect/marketplace_backend/config"
	"github.com/farmdirect/marketplace_backend/handlers"
	"github.com/farmdirect/marketplace_backend/models"
	"github.com/farmdirect/marketplace_backend/workflow"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	// Connect before serving traffic; the retry loop keeps trying until
	// the database is reachable.
	db := config.ConnectDatabaseWithRetry()
	defer config.CloseDatabase(db)

	if err := models.MigrateTable(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	// optional layers: catalog cache and stock locks degrade gracefully
	// when Redis is absent
	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedisWithRetry()
	}

	provider := workflow.DefaultPaymentProvider()
	router := handlers.NewRouter(db, provider)

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	sinks := []workflow.EventSink{&workflow.InAppSink{DB: db}}
	if topicID := config.NotificationTopicID(); topicID != "" {
		client, err := config.GetPubSubClient(dispatcherCtx)
		if err != nil {
			log.Printf("pubsub unavailable, events stay in-app only: %v", err)
		} else {
			sinks = append(sinks, &workflow.PubSubSink{Topic: client.Topic(topicID)})
		}
	}
	dispatcher := workflow.NewOutboxDispatcher(db, sinks...)
	go dispatcher.Run(dispatcherCtx)

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	stopDispatcher()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
}
