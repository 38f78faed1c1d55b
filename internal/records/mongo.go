package records

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps records as documents, one per session.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// mongoRecord adds the document ObjectID to a Record.
type mongoRecord struct {
	ObjectID primitive.ObjectID `bson:"_id,omitempty"`
	Record   `bson:",inline"`
}

// ConnectMongo dials uri and returns a store over database.collection.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{client: client, coll: client.Database(database).Collection(collection)}, nil
}

func (s *MongoStore) Create(ctx context.Context, r *Record) (string, error) {
	res, err := s.coll.InsertOne(ctx, mongoRecord{Record: *r})
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

func (s *MongoStore) BySession(ctx context.Context, sessionID string) (*Record, error) {
	var doc mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}
	r := doc.Record
	r.ID = doc.ObjectID.Hex()
	return &r, nil
}

func (s *MongoStore) IncrementDisplayed(ctx context.Context, sessionID string, by int) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$inc": bson.M{"displayed": by}},
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
