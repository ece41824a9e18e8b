package model

import "time"

// DownloadToken is the record stored for every issued download token.
// It lives in the token store until its TTL fires; exhaustion does not remove it.
type DownloadToken struct {
	Token            string    `json:"token"`
	StorageReference string    `json:"storage_reference"`
	RemainingUses    int       `json:"remaining_uses"`
	MaxUses          int       `json:"max_uses"`
	CreatedAt        time.Time `json:"created_at"`
}

// Redemption is the outcome of one successful consume of a token
type Redemption struct {
	StorageReference string
	RemainingUses    int
}

// TokenStatus describes a live token for administrative inspection
type TokenStatus struct {
	Token            string    `json:"token"`
	StorageReference string    `json:"storageReference"`
	RemainingUses    int       `json:"remainingUses"`
	MaxUses          int       `json:"maxUses"`
	Exhausted        bool      `json:"exhausted"`
	CreatedAt        time.Time `json:"createdAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

// CreateLinkRequest is the body of the link creation endpoint
type CreateLinkRequest struct {
	StorageReference string `json:"storageReference" binding:"required"`
}

// CreateLinkResponse is returned after a token has been issued
type CreateLinkResponse struct {
	DownloadLink     string `json:"downloadLink"`
	ExpiresInMinutes int    `json:"expiresInMinutes"`
	MaxDownloads     int    `json:"maxDownloads"`
}

// DownloadGrant is what a successful redemption hands back to the caller
type DownloadGrant struct {
	SignedURL        string
	StorageReference string
	RemainingUses    int
	ExpiresAt        time.Time
}
