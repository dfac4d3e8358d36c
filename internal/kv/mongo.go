package kv

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollection = "kv_entries"

type mongoEntry struct {
	Key      string            `bson:"_id"`
	Value    []byte            `bson:"value"`
	Metadata map[string]string `bson:"metadata"`
}

// MongoStore backs the namespace with a single collection keyed by _id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// ConnectMongo connects using a full URI whose path names the database,
// e.g. mongodb://localhost:27017/cards.
func ConnectMongo(ctx context.Context, mongoURI string) (*MongoStore, error) {
	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, fmt.Errorf("could not parse MongoDB URI: %w", err)
	}
	dbName := strings.TrimPrefix(uri.Path, "/")
	if dbName == "" {
		dbName = "cards"
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("could not ping MongoDB: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(dbName).Collection(mongoCollection),
	}, nil
}

// Close is for graceful shutdown
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry mongoEntry
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("could not get key: %w", err)
	}
	return entry.Value, nil
}

func (s *MongoStore) Put(ctx context.Context, key string, value []byte, metadata map[string]string) error {
	entry := mongoEntry{Key: key, Value: value, Metadata: metadata}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, entry, opts); err != nil {
		return fmt.Errorf("could not put key: %w", err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, key string) error {
	// deleting an absent key is not an error
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("could not delete key: %w", err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, prefix, cursor string, limit int) (*ListResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	filter := bson.M{"_id": bson.M{
		"$gt":    cursor,
		"$regex": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix)},
	}}
	opts := options.Find().
		SetSort(bson.M{"_id": 1}).
		SetLimit(int64(limit + 1)).
		SetProjection(bson.M{"_id": 1, "metadata": 1})

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("could not list keys: %w", err)
	}
	defer cur.Close(ctx)

	res := &ListResult{Complete: true}
	for cur.Next(ctx) {
		var entry mongoEntry
		if err := cur.Decode(&entry); err != nil {
			return nil, fmt.Errorf("could not decode key entry: %w", err)
		}
		if entry.Metadata == nil {
			entry.Metadata = map[string]string{}
		}
		res.Keys = append(res.Keys, KeyInfo{Name: entry.Key, Metadata: entry.Metadata})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("could not list keys: %w", err)
	}

	// one extra document was requested to detect whether more pages remain
	if len(res.Keys) > limit {
		res.Keys = res.Keys[:limit]
		res.Cursor = res.Keys[limit-1].Name
		res.Complete = false
	}
	return res, nil
}
