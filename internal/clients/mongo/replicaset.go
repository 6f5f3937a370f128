package mongo

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

var isReplicaSet atomic.Bool

// IsReplicaSet reports whether the connected deployment is a replica set.
// It is probed once at Init.
func IsReplicaSet() bool { return isReplicaSet.Load() }

func probeTopology(ctx context.Context, db *mongo.Database, log *slog.Logger) {
	var hello struct {
		SetName string `bson:"setName"`
	}
	if err := db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		log.Debug("topology probe failed", "error", err)
		isReplicaSet.Store(false)
		return
	}
	isReplicaSet.Store(hello.SetName != "")
}
