package ast

import (
	"context"
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of parsed fragments kept when no size is
// configured.
const DefaultCacheSize = 512

// Cache memoizes Parse by source hash. The fix loop and the final integrity
// check of the tree compiler parse the same text repeatedly. Cached
// fragments are shared and must not be mutated.
type Cache struct {
	fragments *lru.Cache[string, *Fragment]
}

// NewCache creates a parse cache holding up to size fragments.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, err := lru.New[string, *Fragment](size)
	if err != nil {
		return nil, fmt.Errorf("creating parse cache: %w", err)
	}
	return &Cache{fragments: l}, nil
}

// Parse returns the cached fragment for src or parses and caches it.
// Syntax errors are not cached. A nil Cache parses every time.
func (c *Cache) Parse(ctx context.Context, src string) (*Fragment, error) {
	if c == nil {
		return ParseContext(ctx, src)
	}
	key := sourceHash(src)
	if f, ok := c.fragments.Get(key); ok {
		return f, nil
	}
	f, err := ParseContext(ctx, src)
	if err != nil {
		return nil, err
	}
	c.fragments.Add(key, f)
	return f, nil
}

// Len returns the number of cached fragments.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.fragments.Len()
}

func sourceHash(src string) string {
	sum := sha256.Sum256([]byte(src))
	return fmt.Sprintf("%x", sum[:])
}
