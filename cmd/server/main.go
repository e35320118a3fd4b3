package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dkoval/market_api/internal/config"
	"github.com/dkoval/market_api/internal/es"
	"github.com/dkoval/market_api/internal/handlers"
	"github.com/dkoval/market_api/internal/logging"
	"github.com/dkoval/market_api/internal/metrics"
	authmw "github.com/dkoval/market_api/internal/middleware/auth"
	"github.com/dkoval/market_api/internal/mykafka"
	"github.com/dkoval/market_api/internal/repository"
	"github.com/dkoval/market_api/internal/service/search"
	"github.com/dkoval/market_api/internal/storage"
	"github.com/dkoval/market_api/internal/token"
	httpserver "github.com/dkoval/market_api/internal/transport/http"
)

const productIndex = "product"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	files, err := storage.NewFileStore(configuration.IMAGE_DIR)
	if err != nil {
		log.Fatal(err)
	}

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	} else {
		logger.Warn("KAFKA_ADDRESS is empty, domain events are disabled")
	}

	searchHandler := &handlers.SearchHandler{Index: productIndex}
	indexer := &search.Indexer{Index: productIndex}
	if configuration.ES_URL != "" {
		client, err := es.NewClient(configuration)
		if err != nil {
			log.Fatal(err)
		}
		searchHandler.ES = client
		indexer.ES = client
	} else {
		logger.Warn("ES_URL is empty, product search is disabled")
	}

	tokens := token.NewService([]byte(configuration.JWT_SECRET))
	col := metrics.NewCollector()

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodOptions, http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit("8M"))
	e.Use(logging.RequestLogger(logger))
	e.Use(col.Middleware())

	deps := httpserver.Deps{
		UserHandler: &handlers.UserHandler{
			Users:    &repository.UserRepo{DB: db},
			Tokens:   tokens,
			Producer: prod,
		},
		ProductHandler: &handlers.ProductHandler{
			Products: &repository.ProductRepo{DB: db},
			Files:    files,
			Producer: prod,
			Indexer:  indexer,
		},
		SearchHandler: searchHandler,
		Auth:          &authmw.Middleware{Tokens: tokens},
		Metrics:       col,
		ImageDir:      configuration.IMAGE_DIR,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
