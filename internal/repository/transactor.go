package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

type mongoTransactor struct {
	client  *mongo.Client
	enabled bool
}

// NewMongoTransactor returns a Transactor backed by Mongo sessions. With
// enabled false, fn runs without a transaction and writes apply in call order.
func NewMongoTransactor(db *mongo.Database, enabled bool) Transactor {
	return &mongoTransactor{client: db.Client(), enabled: enabled}
}

func (t *mongoTransactor) Atomic() bool { return t.enabled }

func (t *mongoTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
