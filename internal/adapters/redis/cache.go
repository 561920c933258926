package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// SetBidGuard takes a short-lived lock on (event, bidder) so a burst of
// duplicate submissions from the same bidder is rejected before it
// reaches the ledger. The ledger's deterministic bid key remains the
// authoritative duplicate check.
func (c *Cache) SetBidGuard(ctx context.Context, eventID, bidder string, ttl time.Duration) (bool, error) {
	key := "bid:" + eventID + ":" + bidder
	res := c.client.SetNX(ctx, key, "1", ttl)
	return res.Val(), res.Err()
}

func (c *Cache) ReleaseBidGuard(ctx context.Context, eventID, bidder string) error {
	return c.client.Del(ctx, "bid:"+eventID+":"+bidder).Err()
}

// CachePrice stores a price snapshot for the read-only price query. The
// TTL is short; the settlement path always recomputes from the event row.
func (c *Cache) CachePrice(ctx context.Context, eventID string, now, price int64, ttl time.Duration) error {
	key := "price:" + eventID + ":" + strconv.FormatInt(now, 10)
	return c.client.Set(ctx, key, price, ttl).Err()
}

func (c *Cache) GetCachedPrice(ctx context.Context, eventID string, now int64) (int64, bool, error) {
	key := "price:" + eventID + ":" + strconv.FormatInt(now, 10)
	val, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}
