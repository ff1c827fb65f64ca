// File: database/repository/document/documentMongoCrud.go
package documentRepo

import (
	"fmt"
	"time"

	"lingodoc/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Create inserts a new document draft.
func (r *MongoDocumentRepo) Create(doc *models.Document) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = models.DocStatusPending
	}

	_, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by its unique ID.
func (r *MongoDocumentRepo) GetByID(id string) (*models.Document, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var doc models.Document
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("document with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch document with id %s: %w", id, err)
	}
	return &doc, nil
}

// GetByIDForUser retrieves a document scoped to its owner.
func (r *MongoDocumentRepo) GetByIDForUser(id, userID string) (*models.Document, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var doc models.Document
	filter := bson.M{"id": id, "user_id": userID}
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("document with id %s not found for user", id)
		}
		return nil, fmt.Errorf("failed to fetch document with id %s: %w", id, err)
	}
	return &doc, nil
}

// GetAllForUser retrieves all documents owned by the given user.
func (r *MongoDocumentRepo) GetAllForUser(userID string) ([]models.Document, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	for cursor.Next(ctx) {
		var d models.Document
		if err := cursor.Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// UpdateStatus sets the lifecycle status unconditionally.
func (r *MongoDocumentRepo) UpdateStatus(id, status string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id}
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update document with id %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("document with id %s not found", id)
	}
	return nil
}

// UpdateStatusMany sets the status on every listed document.
func (r *MongoDocumentRepo) UpdateStatusMany(ids []string, status string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": bson.M{"$in": ids}}
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}

	if _, err := r.coll.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to update documents: %w", err)
	}
	return nil
}

// DeleteAbandonedDrafts removes unpaid drafts with no file older than the cutoff.
func (r *MongoDocumentRepo) DeleteAbandonedDrafts(cutoff time.Time) (int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"status":     models.DocStatusPending,
		"file_url":   nil,
		"created_at": bson.M{"$lt": cutoff},
	}
	result, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete abandoned drafts: %w", err)
	}
	return result.DeletedCount, nil
}
