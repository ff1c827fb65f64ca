package sessionRepo

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

// SessionRepository defines persistence operations for checkout sessions. The
// local record is a convenience cache; the provider-held session is
// authoritative.
type SessionRepository interface {
	Create(session *models.CheckoutSession) error
	GetBySessionID(sessionID string) (*models.CheckoutSession, error)
	MarkCompleted(sessionID string) error
}

// MongoSessionRepo implements SessionRepository using MongoDB.
type MongoSessionRepo struct {
	coll *mongo.Collection
}

// NewMongoSessionRepo creates a new instance of SessionRepository using MongoDB.
func NewMongoSessionRepo() SessionRepository {
	coll := database.MongoClient.Database(config.AppConfig.DatabaseName).Collection("checkout_sessions")
	repo := &MongoSessionRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoSessionRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Create inserts a new session record.
func (r *MongoSessionRepo) Create(session *models.CheckoutSession) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.PaymentStatus == "" {
		session.PaymentStatus = models.SessionPaymentPending
	}

	_, err := r.coll.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to create checkout session: %w", err)
	}
	return nil
}

// GetBySessionID retrieves a session record by the provider-assigned ID.
func (r *MongoSessionRepo) GetBySessionID(sessionID string) (*models.CheckoutSession, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var session models.CheckoutSession
	if err := r.coll.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&session); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("checkout session %s not found", sessionID)
		}
		return nil, fmt.Errorf("failed to fetch checkout session %s: %w", sessionID, err)
	}
	return &session, nil
}

// MarkCompleted flips the local record to completed. Safe to call repeatedly.
func (r *MongoSessionRepo) MarkCompleted(sessionID string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"session_id": sessionID}
	update := bson.M{"$set": bson.M{
		"payment_status": models.SessionPaymentCompleted,
		"updated_at":     time.Now(),
	}}

	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark checkout session %s completed: %w", sessionID, err)
	}
	return nil
}
