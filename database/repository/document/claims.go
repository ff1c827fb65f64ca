// File: database/repository/document/claims.go
package documentRepo

import (
	"fmt"
	"time"

	"lingodoc/models"

	"go.mongodb.org/mongo-driver/bson"
)

// The methods in this file implement the two compare-and-swap guards the
// reconciliation workflow relies on. Both the payment webhook and the
// post-payment finalizer call them for the same document; whichever write
// matches the state-scoped filter first wins, and the loser observes
// ModifiedCount == 0 and backs off.

// ClaimForFinalize moves a document to "processing" provided its file
// reference is still unset. The write always touches claimed_at so
// ModifiedCount is a reliable win/lose signal even when the status value was
// already "processing".
func (r *MongoDocumentRepo) ClaimForFinalize(id string) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	filter := bson.M{
		"id":       id,
		"file_url": nil,
		"status": bson.M{"$in": []string{
			models.DocStatusPending,
			models.DocStatusStripePending,
			models.DocStatusProcessing,
		}},
	}
	update := bson.M{"$set": bson.M{
		"status":     models.DocStatusProcessing,
		"claimed_at": now,
		"updated_at": now,
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to claim document %s: %w", id, err)
	}
	return result.ModifiedCount > 0, nil
}

// AssignFileReference sets the file reference provided the document is still
// "processing" and the reference is unset. An already-set reference is never
// overwritten.
func (r *MongoDocumentRepo) AssignFileReference(id, fileURL string) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"id":       id,
		"status":   models.DocStatusProcessing,
		"file_url": nil,
	}
	update := bson.M{"$set": bson.M{
		"file_url":   fileURL,
		"updated_at": time.Now(),
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to assign file reference for document %s: %w", id, err)
	}
	return result.ModifiedCount > 0, nil
}

// MarkUploadFailed stamps the upload-failed marker so the retry flow can pick
// the document up.
func (r *MongoDocumentRepo) MarkUploadFailed(id string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id}
	update := bson.M{"$set": bson.M{
		"upload_failed_at": time.Now(),
		"updated_at":       time.Now(),
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark upload failed for document %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("document with id %s not found", id)
	}
	return nil
}

// FinalizeRetryUpload sets the file reference, clears the upload-failed marker
// and increments the retry counter in one privileged write.
func (r *MongoDocumentRepo) FinalizeRetryUpload(id, fileURL string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id}
	update := bson.M{
		"$set": bson.M{
			"file_url":         fileURL,
			"upload_failed_at": nil,
			"updated_at":       time.Now(),
		},
		"$inc": bson.M{"retry_count": 1},
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to finalize retry upload for document %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("document with id %s not found", id)
	}
	return nil
}

// PrivilegedUpdate applies staff-credentialed field changes regardless of row
// ownership.
func (r *MongoDocumentRepo) PrivilegedUpdate(id string, fileURL *string, markUploadFailed, clearUploadFailed bool) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	set := bson.M{"updated_at": time.Now()}
	if fileURL != nil {
		set["file_url"] = *fileURL
	}
	if markUploadFailed {
		set["upload_failed_at"] = time.Now()
	}
	if clearUploadFailed {
		set["upload_failed_at"] = nil
	}

	filter := bson.M{"id": id}
	result, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed privileged update for document %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("document with id %s not found", id)
	}
	return nil
}
