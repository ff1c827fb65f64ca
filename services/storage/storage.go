package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// StorageServiceImpl implements StorageService on Cloudinary.
type StorageServiceImpl struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewStorageService creates a new StorageServiceImpl instance.
func NewStorageService(cld *cloudinary.Cloudinary, folder string) StorageService {
	return &StorageServiceImpl{
		cld:    cld,
		folder: folder,
	}
}

// UploadDocument uploads PDF bytes under the given public ID and returns the
// permanent URL. Overwrite is disabled, so re-uploading an ID that already
// exists returns the existing asset instead of clobbering it.
func (s *StorageServiceImpl) UploadDocument(ctx context.Context, data []byte, publicID string) (string, error) {
	uploadParams := uploader.UploadParams{
		PublicID:     publicID,
		Folder:       s.folder,
		ResourceType: "raw",
		Overwrite:    api.Bool(false),
	}
	result, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploadParams)
	if err != nil {
		return "", classify(fmt.Errorf("StorageServiceImpl: failed to upload document: %w", err))
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("StorageServiceImpl: no URL returned for %s", publicID)
	}
	return result.SecureURL, nil
}

// DeleteDocument deletes a document from Cloudinary given its public ID.
func (s *StorageServiceImpl) DeleteDocument(ctx context.Context, publicID string) error {
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return fmt.Errorf("StorageServiceImpl: failed to delete document: %w", err)
	}
	return nil
}

// classify wraps retryable failures in TransientError so callers with bounded
// retry can tell them apart from permanent rejections.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransientError{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}
	return err
}
