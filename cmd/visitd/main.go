package main

import (
	"context"
	"flag"
	"os"
	"time"

	"visitd/pkg/backend"
	"visitd/pkg/log"
	"visitd/pkg/server"
	"visitd/pkg/store/mongo"
	"visitd/pkg/store/postgres"
)

const version = "0.1.0"

const (
	defaultRetryMax   = 5
	defaultRetryDelay = 5 * time.Second
)

func main() {
	// Initialize logger first
	_ = log.Logger

	port := flag.String("port", envOr("PORT", "3000"), "Server port")
	mongoURL := flag.String("mongo-url", envOr("MONGODB_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	mongoDatabase := flag.String("mongo-db", envOr("MONGODB_DATABASE", mongo.DefaultDatabase), "MongoDB database name")
	postgresURL := flag.String("postgres-url", envOr("DATABASE_URL", ""), "PostgreSQL connection string (empty disables the backend)")
	retryMax := flag.Int("retry-max", defaultRetryMax, "Startup connection attempts per backend")
	retryDelay := flag.Duration("retry-delay", defaultRetryDelay, "Delay between startup connection attempts")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		log.SetDebugMode()
		log.Debug().Msg("Debug mode enabled")
	}

	if *mongoURL == "" {
		log.Fatal().Msg("MongoDB URI must be set with -mongo-url or MONGODB_URI")
	}

	mongoStore := mongo.New(*mongoURL, *mongoDatabase)
	document := server.Backend{
		Name:    "mongodb",
		Manager: backend.NewManager("mongodb", mongoStore),
		Store:   mongoStore,
	}

	relational := server.Backend{Name: "postgresql"}
	if *postgresURL == "" {
		log.Info().Msg("No PostgreSQL connection string, relational backend disabled")
		relational.Manager = backend.NewNotConfigured("postgresql")
	} else {
		postgresStore := postgres.New(*postgresURL)
		relational.Manager = backend.NewManager("postgresql", postgresStore)
		relational.Store = postgresStore
	}

	// Startup retries run in the background so the listener accepts
	// requests immediately.
	for _, b := range []server.Backend{document, relational} {
		go func(b server.Backend) {
			_ = b.Manager.Connect(context.Background(), *retryMax, *retryDelay)
		}(b)
	}

	srv := server.New(version, document, relational)
	if err := srv.Start(":" + *port); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}

	os.Exit(0)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
