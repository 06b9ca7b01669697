package credentials

import (
	"context"
	"sync"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// Registry is the shared view of identities that are still waiting to be
// claimed. PINs and screen IDs must be unique among them.
type Registry interface {
	// Reserve holds both the PIN and the screen ID for identity. It reports
	// false without error when either value is held by a different screen.
	// Reserving an identity that is already held by the same screen succeeds.
	Reserve(ctx context.Context, identity model.Identity) (bool, error)
	// ReserveNew holds a freshly generated identity. It reports false when
	// either the PIN or the screen ID is already held by anyone.
	ReserveNew(ctx context.Context, identity model.Identity) (bool, error)
	// Release drops the hold once the identity has been claimed.
	Release(ctx context.Context, identity model.Identity) error
}

// MemoryRegistry is a process-local Registry. It is enough for a single
// screen and for tests.
type MemoryRegistry struct {
	mu      sync.Mutex
	pins    map[string]string // pin -> screen id
	screens map[string]string // screen id -> pin
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		pins:    make(map[string]string),
		screens: make(map[string]string),
	}
}

func (r *MemoryRegistry) Reserve(_ context.Context, identity model.Identity) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.pins[identity.PIN]; ok && owner != identity.ScreenID {
		return false, nil
	}
	if pin, ok := r.screens[identity.ScreenID]; ok && pin != identity.PIN {
		// the screen already holds another PIN; swap it for the new one
		delete(r.pins, pin)
	}
	r.pins[identity.PIN] = identity.ScreenID
	r.screens[identity.ScreenID] = identity.PIN
	return true, nil
}

func (r *MemoryRegistry) ReserveNew(_ context.Context, identity model.Identity) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pins[identity.PIN]; ok {
		return false, nil
	}
	if _, ok := r.screens[identity.ScreenID]; ok {
		return false, nil
	}
	r.pins[identity.PIN] = identity.ScreenID
	r.screens[identity.ScreenID] = identity.PIN
	return true, nil
}

func (r *MemoryRegistry) Release(_ context.Context, identity model.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.pins[identity.PIN]; ok && owner == identity.ScreenID {
		delete(r.pins, identity.PIN)
	}
	if pin, ok := r.screens[identity.ScreenID]; ok && pin == identity.PIN {
		delete(r.screens, identity.ScreenID)
	}
	return nil
}

// Held reports whether the PIN is currently reserved.
func (r *MemoryRegistry) Held(pin string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pins[pin]
	return ok
}

// Owner returns the screen that holds pin.
func (r *MemoryRegistry) Owner(pin string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.pins[pin]
	return owner, ok
}
