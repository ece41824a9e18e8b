package controller

import (
	"errors"
	"net/http"
	"os"
	"path"
	"strings"

	"download-gate/pkg/auth"
	"download-gate/pkg/logger"
	"download-gate/pkg/storage"

	"github.com/gin-gonic/gin"
)

// FileController serves objects of the local storage provider behind signed URLs
type FileController struct {
	provider *storage.LocalProvider
}

// NewFileController creates a new file controller
func NewFileController(provider *storage.LocalProvider) *FileController {
	return &FileController{
		provider: provider,
	}
}

// ServeFile handles GET /files/*path
func (fc *FileController) ServeFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("path"), "/")

	fullPath, err := fc.provider.ResolveSigned(key, c.Query(auth.ExpiresParam), c.Query(auth.SignatureParam))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidSignature), errors.Is(err, auth.ErrSignatureExpired):
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid or expired signature"})
		case errors.Is(err, os.ErrNotExist), errors.Is(err, storage.ErrInvalidKey):
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		default:
			logger.Errorf(err, "failed to resolve local file %s", key)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.FileAttachment(fullPath, path.Base(key))
}

