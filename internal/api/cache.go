package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/carebridge/hospital-scheduling/internal/scheduling"
)

// ListCache is a pull-based, TTL-bounded cache for appointment list
// responses, keyed by query signature. It belongs to the read API, not the
// lifecycle manager; entries simply age out, there is no invalidation.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewListCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *ListCache {
	return &ListCache{client: client, ttl: ttl, log: log}
}

func (c *ListCache) Get(ctx context.Context, signature string) ([]byte, bool) {
	payload, err := c.client.Get(ctx, signature).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Msg("list cache read failed")
		}
		return nil, false
	}
	return payload, true
}

func (c *ListCache) Set(ctx context.Context, signature string, payload []byte) {
	if err := c.client.Set(ctx, signature, payload, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("list cache write failed")
	}
}

func listSignature(f scheduling.ListFilter) string {
	return fmt.Sprintf("appointments:list:v1:d=%d:p=%d:s=%s", f.DoctorID, f.PatientID, f.Status)
}
