package download

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"download-gate/pkg/config"
	"download-gate/pkg/logger"
	"download-gate/pkg/metrics"
	"download-gate/pkg/model"
	"download-gate/pkg/storage"
	tokenService "download-gate/service-api/internal/service/token"
)

// DownloadRoute is the public path prefix a download link is served under
const DownloadRoute = "/dl"

var (
	ErrStorageUnavailable = errors.New("storage backend unavailable")
)

// Service defines the download link interface
type Service interface {
	// CreateLink issues a token for storageRef and builds the shareable link
	CreateLink(ctx context.Context, storageRef string) (*model.CreateLinkResponse, error)

	// Redeem consumes one use of token and returns a short-lived signed URL for its object
	Redeem(ctx context.Context, token string) (*model.DownloadGrant, error)

	// DescribeLink returns the state of the token behind a link
	DescribeLink(ctx context.Context, token string) (*model.TokenStatus, error)

	// ConsumeMode reports the active consume strategy
	ConsumeMode() string
}

// downloadService provides download link services.
type downloadService struct {
	tokenService    tokenService.Service
	storageProvider storage.Provider
	metrics         *metrics.Metrics
	baseURL         string
	tokenTTL        time.Duration
	maxDownloads    int
	signedURLTTL    time.Duration
}

// NewDownloadService creates a new download service instance.
func NewDownloadService(
	cfg *config.TokenConfig,
	tokenService tokenService.Service,
	storageProvider storage.Provider,
	m *metrics.Metrics,
) Service {
	return &downloadService{
		tokenService:    tokenService,
		storageProvider: storageProvider,
		metrics:         m,
		baseURL:         strings.TrimRight(cfg.PublicBaseURL, "/"),
		tokenTTL:        cfg.TTL,
		maxDownloads:    cfg.MaxDownloads,
		signedURLTTL:    cfg.SignedURLTTL,
	}
}

// CreateLink creates a token and wraps it into a download link
func (s *downloadService) CreateLink(ctx context.Context, storageRef string) (*model.CreateLinkResponse, error) {
	record, err := s.tokenService.CreateToken(ctx, storageRef)
	if err != nil {
		return nil, err
	}

	s.metrics.TokenCreated()
	logger.Infof("issued download token for %s (%d downloads, expires in %s)", record.StorageReference, record.MaxUses, s.tokenTTL)

	return &model.CreateLinkResponse{
		DownloadLink:     fmt.Sprintf("%s%s/%s", s.baseURL, DownloadRoute, record.Token),
		ExpiresInMinutes: int(s.tokenTTL / time.Minute),
		MaxDownloads:     record.MaxUses,
	}, nil
}

// Redeem consumes the token and signs a URL for the referenced object.
// A storage failure happens after the use was consumed; the use is not given back.
func (s *downloadService) Redeem(ctx context.Context, token string) (*model.DownloadGrant, error) {
	redemption, err := s.tokenService.RedeemToken(ctx, token)
	if err != nil {
		s.metrics.ObserveRedemption(redemptionResult(err))
		return nil, err
	}

	signed, err := s.storageProvider.GetSignedURL(ctx, redemption.StorageReference, s.signedURLTTL)
	if err != nil {
		s.metrics.SignedURLFailed()
		s.metrics.ObserveRedemption(metrics.ResultError)
		return nil, fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, redemption.StorageReference, err)
	}

	s.metrics.ObserveRedemption(metrics.ResultRedeemed)

	return &model.DownloadGrant{
		SignedURL:        signed.URL,
		StorageReference: redemption.StorageReference,
		RemainingUses:    redemption.RemainingUses,
		ExpiresAt:        signed.ExpiresAt,
	}, nil
}

func (s *downloadService) DescribeLink(ctx context.Context, token string) (*model.TokenStatus, error) {
	return s.tokenService.DescribeToken(ctx, token)
}

func (s *downloadService) ConsumeMode() string {
	return s.tokenService.ConsumeMode()
}

func redemptionResult(err error) string {
	switch {
	case errors.Is(err, tokenService.ErrInvalidToken):
		return metrics.ResultMalformed
	case errors.Is(err, tokenService.ErrTokenNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, tokenService.ErrTokenExhausted):
		return metrics.ResultExhausted
	default:
		return metrics.ResultError
	}
}
