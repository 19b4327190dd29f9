package variants

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/regionswap/internal/geom"
)

// Cache memoizes generated variant sets by target size. Per-frame tracking
// yields a new rectangle size only when the region moves in depth, so most
// frames reuse an earlier set.
type Cache struct {
	logger   zerolog.Logger
	gen      Generator
	payloads []Payload
	sets     *lru.Cache[geom.Size, []Variant]
	misses   int
}

// NewCache keeps at most capacity variant sets
func NewCache(logger zerolog.Logger, gen Generator, payloads []Payload, capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = 16
	}
	sets, err := lru.New[geom.Size, []Variant](capacity)
	if err != nil {
		return nil, fmt.Errorf("create variant cache: %w", err)
	}
	return &Cache{
		logger:   logger.With().Str("component", "variant-cache").Logger(),
		gen:      gen,
		payloads: payloads,
		sets:     sets,
	}, nil
}

// Get returns the variant set for size, generating it on first use.
func (c *Cache) Get(ctx context.Context, size geom.Size) ([]Variant, error) {
	if set, ok := c.sets.Get(size); ok {
		return set, nil
	}
	set, err := c.gen.Generate(ctx, c.payloads, size)
	if err != nil {
		return nil, fmt.Errorf("generate variants at %s: %w", size, err)
	}
	if len(set) != len(c.payloads) {
		return nil, fmt.Errorf("generator returned %d variants for %d payloads", len(set), len(c.payloads))
	}
	c.misses++
	c.sets.Add(size, set)

	c.logger.Debug().
		Str("size", size.String()).
		Int("variants", len(set)).
		Msg("variants generated")

	return set, nil
}

// Names returns the variant names in payload order.
func (c *Cache) Names() []string { return Names(c.payloads) }

// Generated is how many sets were produced by the generator.
func (c *Cache) Generated() int { return c.misses }
