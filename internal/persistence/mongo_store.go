package persistence

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/deepflow/pkg/api"
)

// MongoFlowStore is a FlowStore backed by a MongoDB collection. Each
// document keeps the intent as a queryable field next to the JSON record.
type MongoFlowStore struct {
	coll *mongo.Collection
}

// Ensure it implements FlowStore.
var _ FlowStore = (*MongoFlowStore)(nil)

// NewMongoFlowStore creates a Mongo-backed flow store.
// dbName defaults to "deepflow" if empty, collName defaults to "flows".
func NewMongoFlowStore(client *mongo.Client, dbName, collName string) *MongoFlowStore {
	if dbName == "" {
		dbName = "deepflow"
	}
	if collName == "" {
		collName = "flows"
	}
	return &MongoFlowStore{
		coll: client.Database(dbName).Collection(collName),
	}
}

type mongoFlowDoc struct {
	ID     string `bson:"_id"`
	Intent string `bson:"intent"`
	Record []byte `bson:"record"`
}

func (s *MongoFlowStore) SaveFlow(ctx context.Context, rec api.FlowRecord) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	doc := mongoFlowDoc{ID: rec.ID, Intent: rec.Intent, Record: data}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoFlowStore) GetFlow(ctx context.Context, id string) (api.FlowRecord, error) {
	var doc mongoFlowDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return api.FlowRecord{}, ErrFlowNotFound
	}
	if err != nil {
		return api.FlowRecord{}, err
	}
	return DecodeRecord(doc.Record)
}

func (s *MongoFlowStore) ListFlows(ctx context.Context, filter FlowFilter) ([]api.FlowRecord, error) {
	q := bson.M{}
	if filter.Intent != "" {
		q["intent"] = filter.Intent
	}
	cur, err := s.coll.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []api.FlowRecord
	for cur.Next(ctx) {
		var doc mongoFlowDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		rec, err := DecodeRecord(doc.Record)
		if err != nil {
			return nil, err
		}
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	return out, cur.Err()
}

func (s *MongoFlowStore) DeleteFlow(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrFlowNotFound
	}
	return nil
}
