package push

import (
	"context"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// Mirror republishes screen events to an external broker so that other
// consumers can follow a screen without holding an HTTP stream open.
type Mirror interface {
	Publish(ctx context.Context, evt model.PushEvent) error
	Close()
}
