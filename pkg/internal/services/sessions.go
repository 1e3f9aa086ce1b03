package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	localCache "github.com/civiclab/pollguard/pkg/internal/cache"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/google/uuid"
)

const sessionLifetime = 12 * time.Hour

// EnsureSessionID returns the caller's session identifier, minting one on
// first contact. A provided id always wins; otherwise the last id issued to
// this fingerprint is reused for the session's lifetime, mirroring the
// first-create-then-reuse behavior of the browser session store.
func EnsureSessionID(provided, fingerprint string) string {
	if len(strings.TrimSpace(provided)) > 0 {
		return strings.TrimSpace(provided)
	}

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	ctx := context.Background()

	cacheKey := fmt.Sprintf("vote-session#%s", fingerprint)
	if cached, err := marshal.Get(ctx, cacheKey, new(string)); err == nil {
		if id, ok := cached.(*string); ok && len(*id) > 0 {
			return *id
		}
	}

	id := fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), strings.Split(uuid.NewString(), "-")[0])
	_ = marshal.Set(ctx, cacheKey, id, store.WithExpiration(sessionLifetime))
	// Ristretto admits writes asynchronously; flush so the very next call for
	// this fingerprint reuses the id instead of minting another one.
	localCache.R.Wait()

	return id
}
