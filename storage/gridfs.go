package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const BackendGridFS = "gridfs"

// GridFSStore streams attachments into a GridFS bucket keyed by a generated
// ObjectID; the hex id is the reference kept on the task.
type GridFSStore struct {
	bucket *gridfs.Bucket
}

func NewGridFSStore(db *mongo.Database, bucketName string) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket %q: %w", bucketName, err)
	}
	return &GridFSStore{bucket: bucket}, nil
}

func (s *GridFSStore) Name() string { return BackendGridFS }

func (s *GridFSStore) Save(ctx context.Context, meta FileMeta, r io.Reader) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}

	opts := options.GridFSUpload().SetMetadata(bson.M{
		"originalname": meta.OriginalName,
		"mimetype":     meta.MimeType,
		"uploadedBy":   meta.UploadedBy,
		"taskId":       meta.TaskID,
		"uploadedAt":   time.Now().UTC(),
	})

	stream, err := s.bucket.OpenUploadStream(generatedName(meta.OriginalName), opts)
	if err != nil {
		return StoredFile{}, fmt.Errorf("open upload stream: %w", err)
	}

	n, err := io.Copy(stream, r)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		// Abort drops the chunks written so far.
		_ = stream.Abort()
		return StoredFile{}, err
	}
	if err := stream.Close(); err != nil {
		return StoredFile{}, fmt.Errorf("finish upload: %w", err)
	}

	id, ok := stream.FileID.(primitive.ObjectID)
	if !ok {
		return StoredFile{}, fmt.Errorf("unexpected gridfs file id %T", stream.FileID)
	}
	return StoredFile{Ref: id.Hex(), Size: n, Backend: BackendGridFS}, nil
}

func (s *GridFSStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	id, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return nil, ErrNotFound
	}
	stream, err := s.bucket.OpenDownloadStream(id)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open download stream: %w", err)
	}
	return stream, nil
}

func (s *GridFSStore) Delete(_ context.Context, ref string) error {
	id, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return ErrNotFound
	}
	if err := s.bucket.Delete(id); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete gridfs file: %w", err)
	}
	return nil
}
