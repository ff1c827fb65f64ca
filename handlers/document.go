package handlers

import (
	"io"
	"net/http"

	documentRepo "lingodoc/database/repository/document"
	"lingodoc/models"
	"lingodoc/services/pricing"
	"lingodoc/services/upload"
	"lingodoc/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentHandler exposes document drafts, reads and the retry-upload flow.
type DocumentHandler struct {
	Docs   documentRepo.DocumentRepository
	Retry  *upload.RetryService
	Logger *zap.Logger
}

// NewDocumentHandler constructs a DocumentHandler.
func NewDocumentHandler(docs documentRepo.DocumentRepository, retry *upload.RetryService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{Docs: docs, Retry: retry, Logger: logger}
}

// CreateDraftHandler creates an unpaid document draft before checkout.
func (h *DocumentHandler) CreateDraftHandler(c *gin.Context) {
	var body struct {
		OriginalFilename string `json:"originalFilename"`
		Pages            int    `json:"pages"`
		TranslationType  string `json:"translationType"`
		Notarization     bool   `json:"notarization"`
		BankStatement    bool   `json:"bankStatement"`
		SourceLanguage   string `json:"sourceLanguage"`
		TargetLanguage   string `json:"targetLanguage"`
		SourceCurrency   string `json:"sourceCurrency"`
		TargetCurrency   string `json:"targetCurrency"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if body.Pages < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page count must be at least 1"})
		return
	}

	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
		return
	}

	docID := uuid.New().String()
	doc := &models.Document{
		ID:               docID,
		UserID:           userID,
		Filename:         docID + ".pdf",
		OriginalFilename: body.OriginalFilename,
		Pages:            body.Pages,
		TranslationType:  body.TranslationType,
		Notarization:     body.Notarization,
		BankStatement:    body.BankStatement,
		SourceLanguage:   body.SourceLanguage,
		TargetLanguage:   body.TargetLanguage,
		SourceCurrency:   body.SourceCurrency,
		TargetCurrency:   body.TargetCurrency,
		Cost:             pricing.DocumentPrice(body.Pages, body.TranslationType, body.BankStatement),
		VerificationCode: utils.GenerateVerificationCode(),
		Status:           models.DocStatusPending,
	}
	if err := h.Docs.Create(doc); err != nil {
		h.Logger.Error("Failed to create document draft", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create document"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// GetDocumentHandler returns one document scoped to its owner. The document
// ID arrives as a path parameter; the retry UI also passes it by query.
func (h *DocumentHandler) GetDocumentHandler(c *gin.Context) {
	docID := c.Param("documentID")
	if docID == "" {
		docID = c.Query("documentId")
	}
	if docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing document ID"})
		return
	}

	doc, err := h.Docs.GetByIDForUser(docID, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ListDocumentsHandler returns all documents owned by the caller.
func (h *DocumentHandler) ListDocumentsHandler(c *gin.Context) {
	docs, err := h.Docs.GetAllForUser(c.GetString("userID"))
	if err != nil {
		h.Logger.Error("Failed to list documents", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// RetryUploadHandler accepts a replacement file for a paid document whose
// original upload failed. The outcome is always the structured result shape.
func (h *DocumentHandler) RetryUploadHandler(c *gin.Context) {
	docID := c.Param("documentID")
	if docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing document ID"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, utils.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}

	result := h.Retry.RetryUpload(c.Request.Context(), upload.RetryUploadInput{
		DocumentID:    docID,
		UserID:        c.GetString("userID"),
		Data:          data,
		Filename:      fileHeader.Filename,
		ContentType:   fileHeader.Header.Get("Content-Type"),
		PaymentStatus: c.PostForm("paymentStatus"),
		PaymentID:     c.PostForm("paymentId"),
	})

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	c.JSON(status, result)
}

// PrivilegedUpdateHandler applies staff-credentialed document updates,
// bypassing the row ownership checks customer routes are subject to.
func (h *DocumentHandler) PrivilegedUpdateHandler(c *gin.Context) {
	var body struct {
		DocumentID        string  `json:"documentId"`
		FileURL           *string `json:"fileUrl"`
		UserID            string  `json:"userId"`
		MarkUploadFailed  bool    `json:"markUploadFailed"`
		ClearUploadFailed bool    `json:"clearUploadFailed"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.DocumentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing document ID"})
		return
	}

	if err := h.Docs.PrivilegedUpdate(body.DocumentID, body.FileURL, body.MarkUploadFailed, body.ClearUploadFailed); err != nil {
		h.Logger.Error("Privileged document update failed",
			zap.String("documentId", body.DocumentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update document"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}
