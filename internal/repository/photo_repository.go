package repository

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

	"studenthub/internal/model"
)

// PhotoRepository keeps avatars and listing images in GridFS, one bucket per name.
// Only buckets configured at startup exist; uploads never create new ones.
type PhotoRepository struct {
	DB      *mongo.Database
	buckets map[string]bool
}

func NewPhotoRepository(client *mongo.Client, dbName string, buckets []string) *PhotoRepository {
	allowed := make(map[string]bool, len(buckets))
	for _, b := range buckets {
		allowed[b] = true
	}
	return &PhotoRepository{DB: client.Database(dbName), buckets: allowed}
}

type gridFile struct {
	ID         primitive.ObjectID `bson:"_id"`
	Filename   string             `bson:"filename"`
	Length     int64              `bson:"length"`
	UploadDate time.Time          `bson:"uploadDate"`
}

func (r *PhotoRepository) bucket(name string) (*gridfs.Bucket, error) {
	if !r.buckets[name] {
		return nil, fmt.Errorf("bucket %q: %w", name, model.ErrBucketNotFound)
	}
	return gridfs.NewBucket(r.DB, options.GridFSBucket().SetName(name))
}

// Upload streams src into bucket and tags it with the owner id.
func (r *PhotoRepository) Upload(ctx context.Context, bucketName, filename, owner string, src io.Reader) (string, error) {
	bucket, err := r.bucket(bucketName)
	if err != nil {
		return "", fmt.Errorf("PhotoRepository.Upload: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetWriteDeadline(deadline); err != nil {
			return "", fmt.Errorf("PhotoRepository.Upload: %w", err)
		}
	}

	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "owner", Value: owner}})
	id, err := bucket.UploadFromStream(filename, src, opts)
	if err != nil {
		return "", fmt.Errorf("PhotoRepository.Upload: %w", err)
	}
	return id.Hex(), nil
}

// Download returns the file bytes and stored filename.
func (r *PhotoRepository) Download(ctx context.Context, bucketName, fileID string) ([]byte, string, error) {
	bucket, err := r.bucket(bucketName)
	if err != nil {
		return nil, "", fmt.Errorf("PhotoRepository.Download: %w", err)
	}
	objID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return nil, "", fmt.Errorf("PhotoRepository.Download: %w", model.ErrNotFound)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetReadDeadline(deadline); err != nil {
			return nil, "", fmt.Errorf("PhotoRepository.Download: %w", err)
		}
	}

	stream, err := bucket.OpenDownloadStream(objID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", fmt.Errorf("PhotoRepository.Download: %w", model.ErrNotFound)
		}
		return nil, "", fmt.Errorf("PhotoRepository.Download: %w", err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, "", fmt.Errorf("PhotoRepository.Download: %w", err)
	}
	return data, stream.GetFile().Name, nil
}

// List returns the files an owner uploaded to bucket.
func (r *PhotoRepository) List(ctx context.Context, bucketName, owner string) ([]model.StoredFile, error) {
	bucket, err := r.bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("PhotoRepository.List: %w", err)
	}
	cursor, err := bucket.FindContext(ctx, bson.M{"metadata.owner": owner})
	if err != nil {
		return nil, fmt.Errorf("PhotoRepository.List: %w", err)
	}
	defer cursor.Close(ctx)

	var files []gridFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("PhotoRepository.List: %w", err)
	}
	out := make([]model.StoredFile, 0, len(files))
	for _, f := range files {
		out = append(out, model.StoredFile{
			ID:         f.ID.Hex(),
			Bucket:     bucketName,
			Filename:   f.Filename,
			Size:       f.Length,
			UploadedAt: f.UploadDate,
			URL:        r.PublicURL(bucketName, f.ID.Hex()),
		})
	}
	return out, nil
}

func (r *PhotoRepository) Remove(ctx context.Context, bucketName, fileID string) error {
	bucket, err := r.bucket(bucketName)
	if err != nil {
		return fmt.Errorf("PhotoRepository.Remove: %w", err)
	}
	objID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return fmt.Errorf("PhotoRepository.Remove: %w", model.ErrNotFound)
	}
	if err := bucket.DeleteContext(ctx, objID); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("PhotoRepository.Remove: %w", model.ErrNotFound)
		}
		return fmt.Errorf("PhotoRepository.Remove: %w", err)
	}
	return nil
}

// PublicURL is the path the storage handler serves the file from.
func (r *PhotoRepository) PublicURL(bucketName, fileID string) string {
	return fmt.Sprintf("/api/storage/%s/%s", bucketName, fileID)
}
