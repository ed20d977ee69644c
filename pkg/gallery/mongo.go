package gallery

import (
	"context"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/masonry/pkg/errors"
)

// FilesCollection is the collection MongoStore reads and writes.
const FilesCollection = "files"

const mongoConnectTimeout = 10 * time.Second

// MongoStore is a [Source] backed by a MongoDB collection of file
// documents. Pages are ordered newest first by file_id and use keyset
// pagination: the token is the last file_id of the previous page.
type MongoStore struct {
	client   *mongo.Client
	coll     *mongo.Collection
	pageSize int
}

// NewMongoStore connects to uri and opens the files collection of database.
func NewMongoStore(ctx context.Context, uri, database string, pageSize int) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}
	s := NewMongoStoreFromCollection(client.Database(database).Collection(FilesCollection), pageSize)
	s.client = client
	return s, nil
}

// NewMongoStoreFromCollection wraps an open collection. Close is a no-op
// for stores created this way.
func NewMongoStoreFromCollection(coll *mongo.Collection, pageSize int) *MongoStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &MongoStore{coll: coll, pageSize: pageSize}
}

// EnsureIndexes creates the unique file_id and object_key indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "file_id", Value: -1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "object_key", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create indexes")
	}
	return nil
}

// FetchInitialPage returns the newest files.
func (s *MongoStore) FetchInitialPage(ctx context.Context) (Page, error) {
	return s.find(ctx, bson.M{})
}

// FetchPage returns the files older than the file_id in token.
func (s *MongoStore) FetchPage(ctx context.Context, token string) (Page, error) {
	filter, err := pageFilter(token)
	if err != nil {
		return Page{}, err
	}
	return s.find(ctx, filter)
}

func pageFilter(token string) (bson.M, error) {
	last, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return nil, errors.New(errors.ErrCodeInvalidPageToken, "invalid page token %q", token)
	}
	return bson.M{"file_id": bson.M{"$lt": last}}, nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) (Page, error) {
	// One extra document tells whether another page exists.
	opts := options.Find().
		SetSort(bson.D{{Key: "file_id", Value: -1}}).
		SetLimit(int64(s.pageSize + 1))

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return Page{}, errors.Wrap(errors.ErrCodeNetwork, err, "query files")
	}
	items := []MediaItem{}
	if err := cur.All(ctx, &items); err != nil {
		return Page{}, errors.Wrap(errors.ErrCodeInternal, err, "decode files")
	}
	return pageOf(items, s.pageSize), nil
}

// pageOf trims a page+1 result set to a page and derives the next token.
func pageOf(items []MediaItem, pageSize int) Page {
	if len(items) <= pageSize {
		return Page{Items: items}
	}
	items = items[:pageSize]
	return Page{Items: items, Next: strconv.FormatInt(items[len(items)-1].FileID, 10)}
}

// Insert stores new files. Every item needs a file ID and an object key.
func (s *MongoStore) Insert(ctx context.Context, items ...MediaItem) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]any, len(items))
	for i, it := range items {
		if it.FileID == 0 {
			return errors.New(errors.ErrCodeInvalidItem, "item %d has no file_id", i)
		}
		if err := errors.ValidateObjectKey(it.ObjectKey); err != nil {
			return err
		}
		if it.CreatedAt.IsZero() {
			it.CreatedAt = time.Now().UTC()
		}
		docs[i] = it
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Wrap(errors.ErrCodeInvalidItem, err, "duplicate file")
		}
		return errors.Wrap(errors.ErrCodeNetwork, err, "insert files")
	}
	return nil
}

// DeleteFile removes the file with the given ID.
func (s *MongoStore) DeleteFile(ctx context.Context, fileID int64) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"file_id": fileID})
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "delete file %d", fileID)
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodeFileNotFound, "file %d not found", fileID)
	}
	return nil
}

// Close disconnects the client opened by NewMongoStore.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

var (
	_ Source  = (*MongoStore)(nil)
	_ Deleter = (*MongoStore)(nil)
)
