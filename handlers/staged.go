package handlers

import (
	"io"
	"net/http"
	"strings"

	"lingodoc/services/staging"
	"lingodoc/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StagedFileHandler accepts file bytes ahead of checkout so they survive the
// redirect to the hosted payment page.
type StagedFileHandler struct {
	Store  staging.Store
	Logger *zap.Logger
}

// NewStagedFileHandler constructs a StagedFileHandler.
func NewStagedFileHandler(store staging.Store, logger *zap.Logger) *StagedFileHandler {
	return &StagedFileHandler{Store: store, Logger: logger}
}

// StageFileHandler stores the uploaded PDF bytes and returns the generated
// file ID for the checkout metadata bag.
func (h *StagedFileHandler) StageFileHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if fileHeader.Size == 0 || fileHeader.Size > utils.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file must be non-empty and at most 10 MB"})
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "application/pdf" && !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only PDF files are accepted"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}

	fileID, err := h.Store.Stage(c.Request.Context(), data)
	if err != nil {
		h.Logger.Error("Failed to stage file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stage file"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fileId": fileID})
}
