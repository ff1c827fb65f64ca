package documentRepo

import (
	"time"

	"lingodoc/models"
)

// DocumentRepository defines persistence operations for documents. The
// conditional Claim/Assign methods are the only concurrency control in the
// system: the document row itself acts as a compare-and-swap guard.
type DocumentRepository interface {
	Create(doc *models.Document) error
	GetByID(id string) (*models.Document, error)
	GetByIDForUser(id, userID string) (*models.Document, error)
	GetAllForUser(userID string) ([]models.Document, error)

	// UpdateStatus sets the lifecycle status unconditionally.
	UpdateStatus(id, status string) error
	// UpdateStatusMany sets the status on every listed document.
	UpdateStatusMany(ids []string, status string) error

	// ClaimForFinalize moves a document to "processing" provided its file
	// reference is still unset. Returns false when another actor already
	// holds or finished the claim.
	ClaimForFinalize(id string) (bool, error)
	// AssignFileReference sets the file reference provided the document is
	// "processing" and the reference is still unset. Returns false when a
	// concurrent actor won the assignment.
	AssignFileReference(id, fileURL string) (bool, error)

	MarkUploadFailed(id string) error
	// FinalizeRetryUpload sets the file reference, clears the upload-failed
	// marker and increments the retry counter in one privileged write.
	FinalizeRetryUpload(id, fileURL string) error
	// PrivilegedUpdate applies staff-credentialed field changes regardless of
	// row ownership.
	PrivilegedUpdate(id string, fileURL *string, markUploadFailed, clearUploadFailed bool) error

	// DeleteAbandonedDrafts removes unpaid drafts with no file older than the
	// cutoff and reports how many were deleted.
	DeleteAbandonedDrafts(cutoff time.Time) (int64, error)
}
