package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tbourn/go-contact-intake/internal/config"
	"github.com/tbourn/go-contact-intake/internal/domain"
)

// inserter is the subset of *mongo.Collection used by DocumentWriter.
type inserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// DocumentWriter inserts each submission as one document. The identifier is
// the ObjectID assigned on insert.
type DocumentWriter struct {
	coll inserter
}

// NewDocumentWriter binds a writer to the named collection of db.
func NewDocumentWriter(db *mongo.Database, collection string) *DocumentWriter {
	return &DocumentWriter{coll: db.Collection(collection)}
}

// Name implements Backend.
func (*DocumentWriter) Name() string { return config.BackendMongo }

// Write implements Backend.
func (w *DocumentWriter) Write(ctx context.Context, s *domain.Submission) (string, error) {
	res, err := w.coll.InsertOne(ctx, s)
	if err != nil {
		return "", writeErr(config.BackendMongo, err)
	}
	return insertedID(res.InsertedID), nil
}

func insertedID(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(v)
	}
}

// ConnectMongo dials the configured cluster and verifies it with a ping. The
// connect timeout bounds startup only; writes use the request context.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}
