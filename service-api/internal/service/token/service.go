package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"download-gate/pkg/config"
	"download-gate/pkg/model"
	tokenRepo "download-gate/service-api/internal/repository/token"
)

var (
	ErrInvalidToken            = errors.New("invalid token format")
	ErrInvalidStorageReference = errors.New("storage reference is required")
	ErrTokenNotFound           = errors.New("token not found or expired")
	ErrTokenExhausted          = errors.New("token has no downloads remaining")
	ErrStoreUnavailable        = errors.New("token store unavailable")
)

// Service defines the token lifecycle interface
type Service interface {
	// CreateToken issues a token with the full allowance for storageRef
	CreateToken(ctx context.Context, storageRef string) (*model.DownloadToken, error)

	// RedeemToken consumes one use of token
	RedeemToken(ctx context.Context, token string) (*model.Redemption, error)

	// DescribeToken reads the state of token without consuming it
	DescribeToken(ctx context.Context, token string) (*model.TokenStatus, error)

	// ConsumeMode reports whether redemptions run atomically ("script") or degraded ("fallback")
	ConsumeMode() string
}

// tokenService provides token lifecycle services.
type tokenService struct {
	tokenRepo tokenRepo.Repository
	ttl       time.Duration
	maxUses   int
	now       func() time.Time
}

// NewTokenService creates a new token service instance.
func NewTokenService(cfg *config.TokenConfig, tokenRepo tokenRepo.Repository) Service {
	return &tokenService{
		tokenRepo: tokenRepo,
		ttl:       cfg.TTL,
		maxUses:   cfg.MaxDownloads,
		now:       time.Now,
	}
}

// CreateToken writes a new record. Whether storageRef points at a real object
// is only discovered when a redemption asks the storage backend for a URL.
func (s *tokenService) CreateToken(ctx context.Context, storageRef string) (*model.DownloadToken, error) {
	storageRef = strings.TrimSpace(storageRef)
	if storageRef == "" {
		return nil, ErrInvalidStorageReference
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	record := &model.DownloadToken{
		Token:            token,
		StorageReference: storageRef,
		RemainingUses:    s.maxUses,
		MaxUses:          s.maxUses,
		CreatedAt:        s.now().UTC(),
	}

	err = s.tokenRepo.Create(ctx, record, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return record, nil
}

// RedeemToken validates the token format locally, then runs the store's consume step
func (s *tokenService) RedeemToken(ctx context.Context, token string) (*model.Redemption, error) {
	if !ValidTokenFormat(token) {
		return nil, ErrInvalidToken
	}

	redemption, err := s.tokenRepo.Consume(ctx, token)
	if err != nil {
		return nil, translateRepoError(err)
	}

	return redemption, nil
}

// DescribeToken returns the current state of a token
func (s *tokenService) DescribeToken(ctx context.Context, token string) (*model.TokenStatus, error) {
	if !ValidTokenFormat(token) {
		return nil, ErrInvalidToken
	}

	record, ttl, err := s.tokenRepo.Get(ctx, token)
	if err != nil {
		return nil, translateRepoError(err)
	}

	return &model.TokenStatus{
		Token:            record.Token,
		StorageReference: record.StorageReference,
		RemainingUses:    record.RemainingUses,
		MaxUses:          record.MaxUses,
		Exhausted:        record.RemainingUses <= 0,
		CreatedAt:        record.CreatedAt.UTC(),
		ExpiresAt:        s.now().Add(ttl).UTC(),
	}, nil
}

func (s *tokenService) ConsumeMode() string {
	return string(s.tokenRepo.Mode())
}

func translateRepoError(err error) error {
	switch {
	case errors.Is(err, tokenRepo.ErrNotFound):
		return ErrTokenNotFound
	case errors.Is(err, tokenRepo.ErrExhausted):
		return ErrTokenExhausted
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}
