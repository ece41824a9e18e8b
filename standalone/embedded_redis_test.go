package main

import (
	"context"
	"testing"
	"time"

	"download-gate/pkg/config"
	"download-gate/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClock_ExpiresKeysInRealTime(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(&config.RedisConfig{Host: mr.Host(), Port: mr.Port(), Timeout: time.Second})
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runRedisClock(ctx, mr, 50*time.Millisecond)

	key := "download-gate:token:clock"
	require.NoError(t, client.HSetWithExpiry(ctx, key, time.Second, "storage_reference", "files/sample.txt", "remaining_uses", 3))

	assert.Eventually(t, func() bool {
		ttl, err := client.TTL(ctx, key)
		return err == nil && ttl < time.Second
	}, time.Second, 20*time.Millisecond, "ttl should count down")

	assert.Eventually(t, func() bool {
		exists, err := client.Exists(ctx, key)
		return err == nil && !exists
	}, 3*time.Second, 50*time.Millisecond, "record should expire without manual fast-forward")
}
