package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avelora/storefront/internal/domain"
	apperrors "github.com/avelora/storefront/pkg/errors"
)

const keyPrefix = "cart:"

// saveIfVersionScript compares the stored cart's version with the expected
// one and swaps atomically. Returns 1 on success, 0 on a version conflict.
// An expected version of 0 requires the key to be absent.
var saveIfVersionScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
local expected = tonumber(ARGV[2])
if current == false then
	if expected ~= 0 then
		return 0
	end
else
	local stored = cjson.decode(current)
	if tonumber(stored['version']) ~= expected then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// CartRepository implements repository.CartRepository using Redis. Carts
// expire after the configured TTL; every save refreshes it.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves the owner's cart, or nil when none is stored.
func (r *CartRepository) Get(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, keyPrefix+ownerKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &cart, nil
}

// Save stores the cart only when the stored version still equals
// expectedVersion, bumping the version by one. Concurrent writers lose the
// race with apperrors.ErrTransient and should re-read and retry.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart, expectedVersion int) error {
	cart.Version = expectedVersion + 1
	cart.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	ok, err := saveIfVersionScript.Run(ctx, r.client,
		[]string{keyPrefix + cart.OwnerKey},
		data, expectedVersion, r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis save cart: %w", err)
	}
	if ok != 1 {
		return apperrors.Transient("cart was modified concurrently, retry")
	}
	return nil
}

// Delete removes the owner's cart.
func (r *CartRepository) Delete(ctx context.Context, ownerKey string) error {
	if err := r.client.Del(ctx, keyPrefix+ownerKey).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
