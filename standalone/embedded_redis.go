package main

import (
	"context"
	"time"

	"download-gate/pkg/logger"

	"github.com/alicebob/miniredis/v2"
)

// clockInterval is how often the embedded store's TTLs are advanced
const clockInterval = time.Second

var embeddedRedis *miniredis.Miniredis

// startEmbeddedRedis runs an in-process Redis until ctx is cancelled.
// miniredis executes Lua, so the token store runs in script mode.
func startEmbeddedRedis(ctx context.Context, ready chan<- struct{}) {
	logger.Info("Starting embedded Redis...")

	var err error
	embeddedRedis, err = miniredis.Run()
	if err != nil {
		logger.Fatalf("Failed to start embedded Redis: %v", err)
	}

	// miniredis only expires keys when told time has passed
	go runRedisClock(ctx, embeddedRedis, clockInterval)

	logger.Infof("✅ Embedded Redis started successfully on %s", embeddedRedis.Addr())
	close(ready)

	// wait for context cancellation
	<-ctx.Done()

	// shutdown
	logger.Info("Shutting down embedded Redis...")
	embeddedRedis.Close()
}

// runRedisClock advances mr by the wall-clock time elapsed since the last tick until ctx is done
func runRedisClock(ctx context.Context, mr *miniredis.Miniredis, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			mr.SetTime(now)
			mr.FastForward(now.Sub(last))
			last = now
		}
	}
}
