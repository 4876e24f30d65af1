package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/abhisek/adaptly/internal/question"
)

// MongoCollection is the collection questions are kept in.
const MongoCollection = "questions"

// MongoConfig configures a MongoSource.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// MongoSource reads authored documents from MongoDB. Documents are stored
// with their JSON field names.
type MongoSource struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects and verifies the connection.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*MongoSource, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetConnectTimeout(timeout).
		SetRetryReads(true)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &MongoSource{client: client, coll: client.Database(cfg.Database).Collection(MongoCollection)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoSource) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "microSkillId", Value: 1}, {Key: "sortOrder", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create mongo indexes: %w", err)
	}
	return nil
}

// Close disconnects.
func (s *MongoSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoSource) Questions(ctx context.Context, microskillID string) ([]*question.Question, error) {
	cur, err := s.coll.Find(ctx,
		bson.D{{Key: "microSkillId", Value: microskillID}},
		options.Find().SetSort(bson.D{{Key: "sortOrder", Value: 1}, {Key: "id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	defer cur.Close(ctx)

	var out []*question.Question
	for cur.Next(ctx) {
		doc, err := documentFromBSON(cur.Current)
		if err != nil {
			return nil, err
		}
		q, err := question.FromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

func (s *MongoSource) Put(ctx context.Context, docs []question.Document) error {
	for _, d := range docs {
		b, err := documentToBSON(d)
		if err != nil {
			return err
		}
		_, err = s.coll.ReplaceOne(ctx, bson.D{{Key: "id", Value: d.ID}}, b, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("upsert question %s: %w", d.ID, err)
		}
	}
	return nil
}

// documentFromBSON decodes a stored document through relaxed extended
// JSON so the json-tagged Document fields, raw sub-documents included,
// decode as authored.
func documentFromBSON(raw bson.Raw) (question.Document, error) {
	js, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return question.Document{}, fmt.Errorf("bson to json: %w", err)
	}
	var doc question.Document
	if err := json.Unmarshal(js, &doc); err != nil {
		return question.Document{}, fmt.Errorf("decode question document: %w", err)
	}
	return doc, nil
}

func documentToBSON(d question.Document) (bson.D, error) {
	js, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode question %s: %w", d.ID, err)
	}
	var out bson.D
	if err := bson.UnmarshalExtJSON(js, false, &out); err != nil {
		return nil, fmt.Errorf("json to bson %s: %w", d.ID, err)
	}
	return out, nil
}
