package removal

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// HashImageData keys a removal result by photo content, so a re-upload of the
// same photo reuses the stored cutout.
func HashImageData(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// ResultCache is the optional redis-backed cache of encoded cutout images
// keyed by source photo hash. A nil *ResultCache disables caching entirely.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache connects to redis; returns nil (cache disabled) when no
// address is configured or the server is unreachable.
func NewResultCache(addr string, ttl time.Duration) *ResultCache {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("removal(cache): redis at %s unreachable, caching disabled: %v", addr, err)
		return nil
	}
	log.Printf("removal(cache): result cache enabled at %s (ttl %s)", addr, ttl)
	return &ResultCache{client: client, ttl: ttl}
}

func (c *ResultCache) key(hash string) string {
	return "tryon:cutout:" + hash
}

// Get returns the cached cutout PNG bytes for a photo hash.
func (c *ResultCache) Get(ctx context.Context, hash string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.key(hash)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("removal(cache): get failed for %s: %v", hash, err)
		}
		return nil, false
	}
	return data, true
}

// Set stores the cutout PNG bytes for a photo hash. Failures are logged and
// otherwise ignored; the cache is best-effort.
func (c *ResultCache) Set(ctx context.Context, hash string, data []byte) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, c.key(hash), data, c.ttl).Err(); err != nil {
		log.Printf("removal(cache): set failed for %s: %v", hash, err)
	}
}
