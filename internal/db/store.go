// exposes the store interfaces that are handed to the screen and controller services
package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// ScreenStore persists the single screen record owned by a screen process.
type ScreenStore interface {
	// GetScreen returns the persisted screen, or model.ErrNotFound.
	GetScreen(ctx context.Context) (model.Screen, error)
	SaveScreen(ctx context.Context, screen model.Screen) error
}

// ReplicaStore keeps the controller's view of claimed screens.
type ReplicaStore interface {
	UpsertReplica(ctx context.Context, replica model.Replica) error
	GetReplica(ctx context.Context, screenID string) (model.Replica, error)
	ListReplicas(ctx context.Context) ([]model.Replica, error)
	DeleteReplica(ctx context.Context, screenID string) error
}

// SQLStore implements both stores on postgres or sqlite through sqlx.
type SQLStore struct {
	db *sqlx.DB
}

// compile-time check that SQLStore implements both stores
var (
	_ ScreenStore  = (*SQLStore)(nil)
	_ ReplicaStore = (*SQLStore)(nil)
)

func NewStore(conn *sqlx.DB) *SQLStore {
	return &SQLStore{db: conn}
}
