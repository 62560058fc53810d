package snapshot

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/pkgcheck/pkg/errors"
)

// MongoCollection is the collection snapshots are stored in.
const MongoCollection = "snapshots"

// MongoStore keeps snapshots in a MongoDB collection. Each document holds
// the ID, creation time and problem counts as queryable fields and the
// snapshot itself as encoded JSON.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDocument struct {
	ID        string         `bson:"_id"`
	CreatedAt time.Time      `bson:"created_at"`
	Counts    map[string]int `bson:"counts"`
	Data      []byte         `bson:"data"`
}

// NewMongoStore connects to uri and uses the snapshots collection of
// database, creating the created_at index if needed.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongo")
	}

	coll := client.Database(database).Collection(MongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create index")
	}
	return &MongoStore{client: client, coll: coll}, nil
}

func (s *MongoStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := validateID(snap.ID); err != nil {
		return err
	}
	data, err := Marshal(snap)
	if err != nil {
		return err
	}
	doc := mongoDocument{
		ID:        snap.ID,
		CreatedAt: snap.CreatedAt,
		Counts:    make(map[string]int, len(snap.Counts)),
		Data:      data,
	}
	for k, n := range snap.Counts {
		doc.Counts[k.String()] = n
	}

	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": snap.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save snapshot %s", snap.ID)
	}
	return nil
}

func (s *MongoStore) Latest(ctx context.Context) (*Snapshot, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.findOne(ctx, bson.D{}, opts, LatestFile)
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	return s.findOne(ctx, bson.M{"_id": id}, options.FindOne(), id)
}

func (s *MongoStore) findOne(ctx context.Context, filter any, opts *options.FindOneOptions, what string) (*Snapshot, error) {
	var doc mongoDocument
	err := s.coll.FindOne(ctx, filter, opts).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(what)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "read snapshot %s", what)
	}
	return Unmarshal(doc.Data)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
