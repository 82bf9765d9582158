package sequence

import (
	"context"
	"fmt"

	"classifieds-backend/internal/domain"
)

const (
	DefaultPrefix = "POST"
	DefaultName   = "listing"
)

// FormatHumanID zero-pads n to three digits and grows past 999 instead of wrapping.
func FormatHumanID(prefix string, n int64) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}

// Generator issues human listing ids from a storage-level atomic counter.
type Generator struct {
	Repo   domain.ListingRepository
	Prefix string
	Name   string
}

func NewGenerator(repo domain.ListingRepository) *Generator {
	return &Generator{Repo: repo, Prefix: DefaultPrefix, Name: DefaultName}
}

// NextIn allocates an id inside the caller's transaction. The increment rolls back with it,
// so committed ids stay gap-free.
func (g *Generator) NextIn(ctx context.Context, tx domain.ListingRepository) (string, error) {
	n, err := tx.NextSequence(ctx, g.Name)
	if err != nil {
		return "", err
	}
	return FormatHumanID(g.Prefix, n), nil
}
