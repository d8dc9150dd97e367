package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StatusCheck records that a client pinged the API.
type StatusCheck struct {
	ID         string    `json:"id" bson:"id"`
	ClientName string    `json:"client_name" bson:"client_name"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

const maxStatusChecks = 1000

type StatusChecks struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewStatusChecks(db *mongo.Database) *StatusChecks {
	return &StatusChecks{
		collection: db.Collection("status_checks"),
		now:        time.Now,
	}
}

func (s *StatusChecks) Create(ctx context.Context, clientName string) (*StatusCheck, error) {
	if clientName == "" {
		return nil, errors.New("client_name is required")
	}

	check := &StatusCheck{
		ID:         uuid.NewString(),
		ClientName: clientName,
		Timestamp:  s.now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.collection.InsertOne(ctx, check); err != nil {
		return nil, fmt.Errorf("failed to insert status check: %w", err)
	}
	return check, nil
}

func (s *StatusChecks) List(ctx context.Context) ([]StatusCheck, error) {
	opts := options.Find().SetLimit(maxStatusChecks)
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find status checks: %w", err)
	}
	defer cursor.Close(ctx)

	checks := make([]StatusCheck, 0)
	if err := cursor.All(ctx, &checks); err != nil {
		return nil, fmt.Errorf("failed to decode status checks: %w", err)
	}
	return checks, nil
}
