package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/go-contact-intake/internal/config"
)

// CloseFunc releases a backend's long-lived client.
type CloseFunc func(context.Context) error

func noopClose(context.Context) error { return nil }

// Open constructs the backend selected by cfg.Backend. db is required only for
// the sqlite backend. The returned CloseFunc must be called at shutdown.
func Open(ctx context.Context, cfg config.Config, db *gorm.DB) (Backend, CloseFunc, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileAppender(cfg.File.Path), noopClose, nil

	case config.BackendMongo:
		client, err := ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		w := NewDocumentWriter(client.Database(cfg.Mongo.Database), cfg.Mongo.Collection)
		return w, client.Disconnect, nil

	case config.BackendS3:
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		return NewObjectWriter(client, cfg.S3), noopClose, nil

	case config.BackendSQLite:
		if db == nil {
			return nil, nil, errors.New("sqlite backend requires a database handle")
		}
		return NewSQLWriter(db), noopClose, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
