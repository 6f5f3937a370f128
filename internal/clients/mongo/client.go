// Package mongo adapts the MongoDB driver to the repository interfaces of
// the services. The connection is opened once at bootstrap and the
// *mongo.Database is handed to each repository constructor.
package mongo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"noteflow/internal/config"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	ErrNotInitialized = errors.New("mongo client was never initialized")
	ErrShutdown       = errors.New("mongo client already shut down")
)

var (
	drv driver = mongoDriver{}

	client  *mongo.Client
	db      *mongo.Database
	initErr error
	wasShut bool
	mu      sync.Mutex
)

// Init connects and pings. A successful connection is reused by later
// calls; a failed one is not cached so the caller may retry.
func Init(ctx context.Context, cfg config.Config, log *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	mu.Lock()
	defer mu.Unlock()

	if client != nil && db != nil {
		return client, db, initErr
	}

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetConnectTimeout(10 * time.Second).
		SetAppName("noteflow")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cli, err := drv.Connect(ctx, opts)
	if err != nil {
		log.Error("failed to connect to mongo", "error", err)
		return nil, nil, err
	}

	if err := drv.Ping(ctx, cli); err != nil {
		log.Error("failed to ping mongo", "error", err)
		_ = drv.Disconnect(ctx, cli)
		return nil, nil, err
	}

	database := cli.Database(cfg.MongoDBName)
	probeTopology(ctx, database, log)

	client = cli
	db = database
	initErr = nil
	wasShut = false

	log.Info("successfully connected to mongo", "db", cfg.MongoDBName, "replica_set", IsReplicaSet())
	return client, db, nil
}

// Client returns the connected client, or nil.
func Client() *mongo.Client {
	mu.Lock()
	defer mu.Unlock()
	return client
}

// DB returns the connected database, or nil.
func DB() *mongo.Database {
	mu.Lock()
	defer mu.Unlock()
	return db
}

// Shutdown disconnects. Calling it again reports ErrShutdown; calling it
// before any successful Init reports ErrNotInitialized.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if client == nil {
		if wasShut {
			return ErrShutdown
		}
		wasShut = true
		return ErrNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := drv.Disconnect(ctx, client)

	client = nil
	db = nil
	initErr = nil
	wasShut = true

	return err
}
