package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"download-gate/pkg/config"
	"download-gate/pkg/logger"
	"download-gate/pkg/model"
	"download-gate/pkg/redis"

	redislib "github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound means the record is absent, either never written or expired
	ErrNotFound = errors.New("token record not found")
	// ErrExhausted means the record exists but has no remaining uses
	ErrExhausted = errors.New("token record exhausted")
	// ErrScriptingUnavailable is returned when script mode is required but the store cannot run scripts
	ErrScriptingUnavailable = errors.New("token store scripting unavailable")
)

// ConsumeMode identifies which consume strategy the repository runs
type ConsumeMode string

const (
	// ConsumeModeScript runs the whole decision table inside one server-side Lua script
	ConsumeModeScript ConsumeMode = "script"
	// ConsumeModeFallback runs the decision table as separate commands and is not atomic
	ConsumeModeFallback ConsumeMode = "fallback"
)

// hash fields of a token record
const (
	fieldStorageReference = "storage_reference"
	fieldRemainingUses    = "remaining_uses"
	fieldMaxUses          = "max_uses"
	fieldCreatedAt        = "created_at"
)

// Repository owns token records in the key-value store
type Repository interface {
	// Create writes a new record whose fields and TTL expire together
	Create(ctx context.Context, record *model.DownloadToken, ttl time.Duration) error

	// Consume atomically decrements the remaining uses of token and returns its storage reference
	Consume(ctx context.Context, token string) (*model.Redemption, error)

	// Get reads a record and its remaining TTL without mutating it
	Get(ctx context.Context, token string) (*model.DownloadToken, time.Duration, error)

	// Mode reports the consume strategy selected at startup
	Mode() ConsumeMode
}

// consumer is one consume strategy
type consumer interface {
	consume(ctx context.Context, key string) (*model.Redemption, error)
}

type tokenRepository struct {
	redis    *redis.Client
	mode     ConsumeMode
	consumer consumer
}

// NewRepository selects a consume strategy according to requestedMode.
// "auto" asks the store to load the consume script and degrades to the fallback strategy when it is missing.
func NewRepository(ctx context.Context, client *redis.Client, requestedMode string) (Repository, error) {
	repo := &tokenRepository{
		redis: client,
	}

	switch requestedMode {
	case config.ConsumeModeFallback:
		repo.useFallback()
		logger.Warn("token store forced into fallback consume mode: redemptions are NOT atomic")

	case config.ConsumeModeScript:
		err := client.LoadScript(ctx, consumeScript)
		if err != nil {
			if isServerReply(err) {
				return nil, fmt.Errorf("%w: %v", ErrScriptingUnavailable, err)
			}
			return nil, fmt.Errorf("failed to check token store scripting: %w", err)
		}
		repo.useScript()

	case config.ConsumeModeAuto, "":
		err := client.LoadScript(ctx, consumeScript)
		switch {
		case err == nil:
			repo.useScript()
		case isServerReply(err):
			repo.useFallback()
			logger.Errorf(err, "token store scripting unavailable, running in DEGRADED fallback consume mode: concurrent redemptions may race")
		default:
			// transport failures are not an answer about scripting support
			return nil, fmt.Errorf("failed to check token store scripting: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported consume mode: %s", requestedMode)
	}

	logger.WithFields(map[string]interface{}{"consume_mode": string(repo.mode)}, "token store ready")
	return repo, nil
}

// isServerReply reports whether err is an error reply sent by the store,
// e.g. an unknown command or a permission denial, rather than a transport failure
func isServerReply(err error) bool {
	var reply redislib.Error
	return errors.As(err, &reply)
}

func (r *tokenRepository) useScript() {
	r.mode = ConsumeModeScript
	r.consumer = &scriptConsumer{redis: r.redis}
}

func (r *tokenRepository) useFallback() {
	r.mode = ConsumeModeFallback
	r.consumer = &fallbackConsumer{redis: r.redis}
}

// tokenKey namespaces a token in the key-value store
func tokenKey(token string) string {
	return fmt.Sprintf("download-gate:token:%s", token)
}

func (r *tokenRepository) Mode() ConsumeMode {
	return r.mode
}

// Create writes a new token record
func (r *tokenRepository) Create(ctx context.Context, record *model.DownloadToken, ttl time.Duration) error {
	err := r.redis.HSetWithExpiry(ctx, tokenKey(record.Token), ttl,
		fieldStorageReference, record.StorageReference,
		fieldRemainingUses, record.RemainingUses,
		fieldMaxUses, record.MaxUses,
		fieldCreatedAt, record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create token record: %w", err)
	}
	return nil
}

// Consume runs the selected consume strategy against the token record
func (r *tokenRepository) Consume(ctx context.Context, token string) (*model.Redemption, error) {
	return r.consumer.consume(ctx, tokenKey(token))
}

// Get reads a token record and its remaining TTL
func (r *tokenRepository) Get(ctx context.Context, token string) (*model.DownloadToken, time.Duration, error) {
	key := tokenKey(token)

	data, err := r.redis.HGetAll(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read token record: %w", err)
	}
	if len(data) == 0 {
		return nil, 0, ErrNotFound
	}

	ttl, err := r.redis.TTL(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read token ttl: %w", err)
	}
	if ttl < 0 {
		// -2: expired between the two reads, -1: a bare hash left behind by a fallback race
		return nil, 0, ErrNotFound
	}

	record, err := parseRecord(token, data)
	if err != nil {
		return nil, 0, err
	}

	return record, ttl, nil
}

// parseRecord converts hash fields into a DownloadToken
func parseRecord(token string, data map[string]string) (*model.DownloadToken, error) {
	record := &model.DownloadToken{
		Token:            token,
		StorageReference: data[fieldStorageReference],
	}

	remaining, err := strconv.Atoi(data[fieldRemainingUses])
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldRemainingUses, err)
	}
	record.RemainingUses = remaining

	if maxStr, ok := data[fieldMaxUses]; ok {
		if record.MaxUses, err = strconv.Atoi(maxStr); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fieldMaxUses, err)
		}
	}

	if createdStr, ok := data[fieldCreatedAt]; ok {
		if unix, err := strconv.ParseInt(createdStr, 10, 64); err == nil {
			record.CreatedAt = time.Unix(unix, 0)
		}
	}

	return record, nil
}
