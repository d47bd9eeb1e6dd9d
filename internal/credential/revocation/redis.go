package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "worktrust_credential_is_revoked_duration_ms",
	Help:    "Latency of credential revocation lookups in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const revokedCredentialKeyPrefix = "crl:vc:"

// RedisList shares revocations between instances.
type RedisList struct {
	client *redis.Client
}

func NewRedisList(client *redis.Client) *RedisList {
	return &RedisList{client: client}
}

// Revoke marks credentialID revoked. A zero ttl keeps the entry forever;
// otherwise it lapses once the credential would have expired anyway.
func (l *RedisList) Revoke(ctx context.Context, credentialID string, ttl time.Duration) error {
	if credentialID == "" {
		return nil
	}
	if ttl < 0 {
		ttl = 0
	}
	return l.client.Set(ctx, revokedCredentialKeyPrefix+credentialID, "1", ttl).Err()
}

// IsRevoked returns false for unknown IDs.
func (l *RedisList) IsRevoked(ctx context.Context, credentialID string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if credentialID == "" {
		return false, nil
	}
	_, err := l.client.Get(ctx, revokedCredentialKeyPrefix+credentialID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Seed loads already-revoked credentials in one pipeline, e.g. after the
// Redis instance was replaced.
func (l *RedisList) Seed(ctx context.Context, credentialIDs []string) error {
	if len(credentialIDs) == 0 {
		return nil
	}
	pipe := l.client.Pipeline()
	for _, cid := range credentialIDs {
		if cid != "" {
			pipe.Set(ctx, revokedCredentialKeyPrefix+cid, "1", 0)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}
