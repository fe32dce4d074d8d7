package repository

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"accreditation/internal/model"
	"accreditation/internal/upload"
)

// DocumentStore keeps supporting documents in a GridFS bucket
type DocumentStore struct {
	bucket *gridfs.Bucket
}

var (
	_ upload.Store  = (*DocumentStore)(nil)
	_ upload.Reader = (*DocumentStore)(nil)
)

// NewDocumentStore opens the "documents" bucket
func NewDocumentStore(db *mongo.Database) (*DocumentStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName("documents"))
	if err != nil {
		return nil, err
	}
	return &DocumentStore{bucket: bucket}, nil
}

// Put streams r into the bucket. A failed stream is aborted by GridFS, so
// no id is returned with an error.
func (s *DocumentStore) Put(ctx context.Context, doc model.Document, r io.Reader) (string, error) {
	id := uuid.New().String()
	opts := options.GridFSUpload().SetMetadata(bson.M{
		"contentType":  doc.ContentType,
		"declaredSize": doc.Size,
		"uploadedAt":   doc.UploadedAt,
	})
	if err := s.bucket.UploadFromStreamWithID(id, doc.Name, r, opts); err != nil {
		return "", err
	}
	return id, nil
}

func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	return s.bucket.DeleteContext(ctx, id)
}

// Open returns the document record and a reader over its body
func (s *DocumentStore) Open(ctx context.Context, id string) (model.Document, io.ReadCloser, error) {
	stream, err := s.bucket.OpenDownloadStream(id)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return model.Document{}, nil, upload.ErrNotFound
	}
	if err != nil {
		return model.Document{}, nil, err
	}

	f := stream.GetFile()
	doc := model.Document{ID: id, Name: f.Name, Size: f.Length, UploadedAt: f.UploadDate}
	if len(f.Metadata) > 0 {
		var meta struct {
			ContentType string `bson:"contentType"`
		}
		if err := bson.Unmarshal(f.Metadata, &meta); err == nil {
			doc.ContentType = meta.ContentType
		}
	}
	return doc, stream, nil
}
