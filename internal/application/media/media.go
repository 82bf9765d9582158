package media

import (
	"context"

	"github.com/google/uuid"
)

// Deleter removes stored objects belonging to a listing.
type Deleter interface {
	DeleteMedia(ctx context.Context, listingID uuid.UUID, keys []string) error
}

// Nop is used when no storage backend is configured.
type Nop struct{}

func (Nop) DeleteMedia(context.Context, uuid.UUID, []string) error { return nil }
