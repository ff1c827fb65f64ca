package paymentRepo

import (
	"context"
	"fmt"
	"time"

	"lingodoc/config"
	"lingodoc/database"
	"lingodoc/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PaymentRepository defines persistence operations for the payment ledger.
// The ledger is append-only; only the status field ever changes, and only
// through staff review.
type PaymentRepository interface {
	// CreateOnce inserts the ledger entry unless one already exists for its
	// session. Returns false when the row was already present.
	CreateOnce(payment *models.Payment) (bool, error)
	GetByID(id string) (*models.Payment, error)
	GetBySessionID(sessionID string) (*models.Payment, error)
	// GetConfirmedByDocumentID returns a completed or verified ledger entry
	// tied to the document, or nil when none exists.
	GetConfirmedByDocumentID(documentID string) (*models.Payment, error)
	UpdateStatus(id, status string) error
}

// MongoPaymentRepo implements PaymentRepository using MongoDB.
type MongoPaymentRepo struct {
	coll *mongo.Collection
}

// NewMongoPaymentRepo creates a new instance of PaymentRepository using MongoDB.
func NewMongoPaymentRepo() PaymentRepository {
	coll := database.MongoClient.Database(config.AppConfig.DatabaseName).Collection("payments")
	repo := &MongoPaymentRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// ensureIndexes creates indexes; the unique session_id index is the backstop
// for the one-ledger-row-per-session invariant.
func (r *MongoPaymentRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "document_id", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// CreateOnce inserts the ledger entry unless one already exists for its
// session. A duplicate-key error is the idempotent no-op case, not a failure.
func (r *MongoPaymentRepo) CreateOnce(payment *models.Payment) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	payment.CreatedAt = time.Now()

	_, err := r.coll.InsertOne(ctx, payment)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create payment: %w", err)
	}
	return true, nil
}

// GetByID retrieves a ledger entry by its unique ID.
func (r *MongoPaymentRepo) GetByID(id string) (*models.Payment, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var payment models.Payment
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&payment); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("payment with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch payment %s: %w", id, err)
	}
	return &payment, nil
}

// GetBySessionID retrieves the ledger entry for a checkout session.
func (r *MongoPaymentRepo) GetBySessionID(sessionID string) (*models.Payment, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var payment models.Payment
	if err := r.coll.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&payment); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch payment for session %s: %w", sessionID, err)
	}
	return &payment, nil
}

// GetConfirmedByDocumentID returns a completed or verified ledger entry tied
// to the document, or nil when none exists.
func (r *MongoPaymentRepo) GetConfirmedByDocumentID(documentID string) (*models.Payment, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"document_id": documentID,
		"status":      bson.M{"$in": []string{models.PaymentCompleted, models.PaymentVerified}},
	}
	var payment models.Payment
	if err := r.coll.FindOne(ctx, filter).Decode(&payment); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch payment for document %s: %w", documentID, err)
	}
	return &payment, nil
}

// UpdateStatus advances a ledger entry's status (staff review only).
func (r *MongoPaymentRepo) UpdateStatus(id, status string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id}
	update := bson.M{"$set": bson.M{"status": status}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update payment %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("payment with id %s not found", id)
	}
	return nil
}
