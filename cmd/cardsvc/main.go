package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/scanbridge/card-services/configs"
	"github.com/scanbridge/card-services/internal/cardsvc/broker"
	svcconfig "github.com/scanbridge/card-services/internal/cardsvc/config"
	handlers "github.com/scanbridge/card-services/internal/cardsvc/handlers"
	"github.com/scanbridge/card-services/internal/cardsvc/service"
	"github.com/scanbridge/card-services/internal/cardsvc/store"
	"github.com/scanbridge/card-services/internal/kv"
	nats "github.com/scanbridge/card-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "card"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg := svcconfig.Load()

	// pick the KV backend; without a durable one the service falls back
	// to process memory and every restart starts empty
	var kvStore kv.Store
	switch {
	case cfg.PostgresURL != "":
		pg, err := kv.ConnectPostgres(context.Background(), cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres KV: %v", err)
		}
		defer pg.Close()
		log.Printf("pg kv namespace established successfully")
		kvStore = pg
	case cfg.MongoURI != "":
		mg, err := kv.ConnectMongo(context.Background(), cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to Mongo KV: %v", err)
		}
		defer mg.Close(context.Background())
		log.Printf("mongo kv namespace established successfully")
		kvStore = mg
	default:
		log.Warn("no durable KV backend configured, using in-memory store (data is lost on restart)")
		kvStore = kv.NewMemoryStore()
	}

	cardStore := store.NewCardStore(kvStore, cfg.ImageMaxBytes, cfg.OwnerQuota)
	cardService := service.NewCardService(cardStore)

	// optional NATS event publishing
	var b *broker.Broker
	if cfg.NatsURL != "" {
		n, err := nats.Connect()
		if err != nil {
			log.Errorf("Error: unable to connect to NATS server %v", err)
		} else {
			defer n.Conn.Close()
			log.Printf("NATS connection established successfully %s", n.Url)
			b = broker.NewBroker(n.Conn)
		}
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimit := 100
	if rateLimitStr := os.Getenv("RATE_LIMIT"); rateLimitStr != "" {
		n, err := strconv.Atoi(rateLimitStr)
		if err != nil {
			log.Fatalf("Invalid RATE_LIMIT value: %v", err)
		}
		rateLimit = n
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(cardService, b)
	h.SetRoutes(r)

	port := os.Getenv("SERVICE_PORT")
	if port == "" {
		port = "8080"
	}

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
