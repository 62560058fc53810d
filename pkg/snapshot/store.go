package snapshot

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/matzehuels/pkgcheck/pkg/errors"
)

// ErrNotFound is returned when a snapshot does not exist, or when a store
// has no snapshot yet.
var ErrNotFound = stderrors.New("snapshot not found")

func notFound(id string) error {
	return errors.Wrap(errors.ErrCodeSnapshotNotFound, ErrNotFound, "snapshot %s", id)
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "snapshot id %q", id)
	}
	return nil
}

// Store keeps snapshots.
type Store interface {
	// Save stores s and makes it the latest snapshot.
	Save(ctx context.Context, s *Snapshot) error
	// Latest returns the most recently saved snapshot.
	Latest(ctx context.Context) (*Snapshot, error)
	// Get returns the snapshot with the given ID.
	Get(ctx context.Context, id string) (*Snapshot, error)
	Close() error
}

// Backends accepted by [Open].
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Config selects and configures a store backend.
type Config struct {
	Backend string `toml:"backend"`

	// Path is the directory of the file backend.
	Path string `toml:"path"`

	// RedisURL is a redis:// URL for the redis backend.
	RedisURL string `toml:"redis_url"`

	// MongoURI and MongoDatabase configure the mongo backend.
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`

	// Prefix namespaces Redis keys.
	Prefix string `toml:"prefix"`
}

// DefaultMongoDatabase is used when Config.MongoDatabase is empty.
const DefaultMongoDatabase = "pkgcheck"

// Validate checks that the selected backend is configured.
func (c Config) Validate() error {
	switch c.Backend {
	case "", BackendFile:
		return nil
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "redis store needs redis_url")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "mongo store needs mongo_uri")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", c.Backend)
	}
	return nil
}

// Open creates the store selected by cfg. The file backend is the default.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.Prefix)
	case BackendMongo:
		db := cfg.MongoDatabase
		if db == "" {
			db = DefaultMongoDatabase
		}
		return NewMongoStore(ctx, cfg.MongoURI, db)
	default:
		return NewFileStore(cfg.Path)
	}
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*MongoStore)(nil)
)
