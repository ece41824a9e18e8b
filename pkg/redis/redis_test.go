package redis

import (
	"context"
	"testing"
	"time"

	"download-gate/pkg/config"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewClient(&config.RedisConfig{
		Host:    mr.Host(),
		Port:    mr.Port(),
		Timeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestHSetWithExpiry(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	err := client.HSetWithExpiry(ctx, "k", time.Minute, "a", "1", "b", "two")
	require.NoError(t, err)

	assert.Equal(t, time.Minute, mr.TTL("k"))

	val, err := client.HGet(ctx, "k", "b")
	require.NoError(t, err)
	assert.Equal(t, "two", val)

	all, err := client.HGetAll(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "two"}, all)

	ttl, err := client.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(time.Minute)

	exists, err := client.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHGet_MissingField(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.HGet(context.Background(), "missing", "field")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestHIncrByAndDelete(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.HSetWithExpiry(ctx, "counter", time.Minute, "n", 2))

	n, err := client.HIncrBy(ctx, "counter", "n", -1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, client.Delete(ctx, "counter"))
	exists, err := client.Exists(ctx, "counter")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestScripts(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	script := redislib.NewScript(`return redis.call('INCRBY', KEYS[1], ARGV[1])`)
	require.NoError(t, client.LoadScript(ctx, script))

	got, err := client.RunScript(ctx, script, []string{"n"}, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
}

func TestNewClient_Unreachable(t *testing.T) {
	previous := connectTimeout
	connectTimeout = 500 * time.Millisecond
	t.Cleanup(func() { connectTimeout = previous })

	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	_, err := NewClient(&config.RedisConfig{Host: host, Port: port, Timeout: 100 * time.Millisecond})
	assert.Error(t, err)
}
