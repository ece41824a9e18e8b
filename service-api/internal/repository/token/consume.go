package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"download-gate/pkg/logger"
	"download-gate/pkg/model"
	"download-gate/pkg/redis"

	redislib "github.com/redis/go-redis/v9"
)

// consume script status codes
const (
	statusNotFound  = -1
	statusExhausted = 0
	statusRedeemed  = 1
)

// consumeScript evaluates the whole decision table against KEYS[1] in one step.
// Returns {-1} when absent, {0} when exhausted, {1, storage_reference, remaining_uses} on success.
var consumeScript = redislib.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return {-1}
end
local remaining = tonumber(redis.call('HGET', KEYS[1], 'remaining_uses'))
if not remaining or remaining <= 0 then
	return {0}
end
remaining = redis.call('HINCRBY', KEYS[1], 'remaining_uses', -1)
local ref = redis.call('HGET', KEYS[1], 'storage_reference')
return {1, ref, remaining}
`)

// scriptConsumer runs consumeScript; the store executes it to completion even if the caller goes away
type scriptConsumer struct {
	redis *redis.Client
}

func (s *scriptConsumer) consume(ctx context.Context, key string) (*model.Redemption, error) {
	raw, err := s.redis.RunScript(ctx, consumeScript, []string{key})
	if err != nil {
		return nil, fmt.Errorf("failed to run consume script: %w", err)
	}

	return parseScriptResult(raw)
}

func parseScriptResult(raw interface{}) (*model.Redemption, error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) == 0 {
		return nil, fmt.Errorf("unexpected consume script result %T", raw)
	}

	status, ok := values[0].(int64)
	if !ok {
		return nil, fmt.Errorf("unexpected consume script status %T", values[0])
	}

	switch status {
	case statusNotFound:
		return nil, ErrNotFound
	case statusExhausted:
		return nil, ErrExhausted
	case statusRedeemed:
		if len(values) != 3 {
			return nil, fmt.Errorf("unexpected consume script result length %d", len(values))
		}
		ref, ok := values[1].(string)
		if !ok {
			return nil, fmt.Errorf("unexpected storage reference type %T", values[1])
		}
		remaining, ok := values[2].(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected remaining uses type %T", values[2])
		}
		return &model.Redemption{
			StorageReference: ref,
			RemainingUses:    int(remaining),
		}, nil
	default:
		return nil, fmt.Errorf("unexpected consume script status %d", status)
	}
}

// fallbackConsumer evaluates the decision table with separate commands.
// It is only used when the store cannot run scripts. Between the steps other
// redemptions can interleave: the counter can transiently drop below zero
// (compensated right away) and a TTL firing mid-sequence can leave a
// TTL-less key behind until the cleanup delete runs.
type fallbackConsumer struct {
	redis *redis.Client
}

func (f *fallbackConsumer) consume(ctx context.Context, key string) (*model.Redemption, error) {
	exists, err := f.redis.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	remainingStr, err := f.redis.HGet(ctx, key, fieldRemainingUses)
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	remaining, err := strconv.Atoi(remainingStr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldRemainingUses, err)
	}
	if remaining <= 0 {
		return nil, ErrExhausted
	}

	newRemaining, err := f.redis.HIncrBy(ctx, key, fieldRemainingUses, -1)
	if err != nil {
		return nil, err
	}
	if newRemaining < 0 {
		// a concurrent redemption took the last use after our compare
		f.restoreUse(ctx, key)
		if f.dropIfResurrected(ctx, key) {
			return nil, ErrNotFound
		}
		return nil, ErrExhausted
	}

	ref, err := f.redis.HGet(ctx, key, fieldStorageReference)
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			f.dropIfResurrected(ctx, key)
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &model.Redemption{
		StorageReference: ref,
		RemainingUses:    int(newRemaining),
	}, nil
}

// restoreUse gives back a use taken by a losing decrement.
// Repair writes outlive the request so a client hanging up cannot leave the counter negative.
func (f *fallbackConsumer) restoreUse(ctx context.Context, key string) {
	_, err := f.redis.HIncrBy(context.WithoutCancel(ctx), key, fieldRemainingUses, 1)
	if err != nil {
		logger.Errorf(err, "failed to restore remaining uses on %s after losing a race", key)
	}
}

// dropIfResurrected deletes key when the record expired mid-sequence and
// HINCRBY recreated it as a bare hash without a TTL
func (f *fallbackConsumer) dropIfResurrected(ctx context.Context, key string) bool {
	ctx = context.WithoutCancel(ctx)

	_, err := f.redis.HGet(ctx, key, fieldStorageReference)
	if !errors.Is(err, redis.ErrKeyNotFound) {
		return false
	}

	err = f.redis.Delete(ctx, key)
	if err != nil {
		logger.Errorf(err, "failed to delete resurrected token record %s", key)
	}
	return true
}
