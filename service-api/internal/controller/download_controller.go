package controller

import (
	"errors"
	"net/http"
	"strconv"

	"download-gate/pkg/auth"
	"download-gate/pkg/logger"
	"download-gate/pkg/model"
	downloadService "download-gate/service-api/internal/service/download"
	tokenService "download-gate/service-api/internal/service/token"

	"github.com/gin-gonic/gin"
)

// RemainingHeader carries the remaining downloads on a successful redemption
const RemainingHeader = "X-Downloads-Remaining"

// DownloadController handles download link HTTP requests
type DownloadController struct {
	downloadService downloadService.Service
}

// NewDownloadController creates a new download controller
func NewDownloadController(downloadService downloadService.Service) *DownloadController {
	return &DownloadController{
		downloadService: downloadService,
	}
}

// CreateLink handles POST /api/v1/admin/links
func (dc *DownloadController) CreateLink(c *gin.Context) {
	var req model.CreateLinkRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "storageReference is required"})
		return
	}

	response, err := dc.downloadService.CreateLink(c.Request.Context(), req.StorageReference)
	if err != nil {
		dc.writeError(c, err)
		return
	}

	logger.Infof("download link created by %s", c.GetString(auth.ContextSubject))
	c.JSON(http.StatusCreated, response)
}

// GetLink handles GET /api/v1/admin/links/:token
func (dc *DownloadController) GetLink(c *gin.Context) {
	status, err := dc.downloadService.DescribeLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		dc.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Redeem handles GET /dl/:token
func (dc *DownloadController) Redeem(c *gin.Context) {
	grant, err := dc.downloadService.Redeem(c.Request.Context(), c.Param("token"))
	if err != nil {
		dc.writeError(c, err)
		return
	}

	c.Header(RemainingHeader, strconv.Itoa(grant.RemainingUses))
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, grant.SignedURL)
}

// writeError maps service errors to responses; internal detail only goes to the log
func (dc *DownloadController) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tokenService.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid download token"})
	case errors.Is(err, tokenService.ErrInvalidStorageReference):
		c.JSON(http.StatusBadRequest, gin.H{"error": "storageReference is required"})
	case errors.Is(err, tokenService.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Download link is invalid or has expired"})
	case errors.Is(err, tokenService.ErrTokenExhausted):
		c.JSON(http.StatusGone, gin.H{"error": "Download limit reached for this link"})
	default:
		logger.Errorf(err, "download request failed on %s", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
