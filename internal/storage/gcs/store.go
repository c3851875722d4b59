// Package gcs provides an artifact store backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gstorage "cloud.google.com/go/storage"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
	"github.com/sgg-bj/lawharvest/internal/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// Store writes artifacts to a configured GCS bucket.
type Store struct {
	client *gstorage.Client
	cfg    Config
}

// New wraps an existing client. Authentication is handled via Google's
// Application Default Credentials when the caller builds the client.
func New(client *gstorage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Store{client: client, cfg: cfg}, nil
}

// Connect builds a client, verifies bucket access, and returns the store.
// Failing fast here surfaces misconfiguration at startup.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	client, err := gstorage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		closeErr := client.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("failed to get GCS bucket %q attributes: %w (close client: %v)", cfg.Bucket, err, closeErr)
		}
		return nil, fmt.Errorf("failed to get GCS bucket %q attributes: %w", cfg.Bucket, err)
	}
	return New(client, cfg)
}

var _ lawdoc.ArtifactStore = (*Store)(nil)

// Exists reports whether the artifact object is present in the bucket.
func (s *Store) Exists(ctx context.Context, kind lawdoc.ArtifactKind, t lawdoc.DocumentType, documentID string) (bool, error) {
	name, err := s.objectName(kind, t, documentID)
	if err != nil {
		return false, err
	}
	_, err = s.client.Bucket(s.cfg.Bucket).Object(name).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gstorage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("attrs %s: %w", name, err)
	}
	return true, nil
}

// Save uploads the artifact and returns a gs:// URI.
func (s *Store) Save(ctx context.Context, kind lawdoc.ArtifactKind, t lawdoc.DocumentType, documentID string, data []byte) (string, error) {
	name, err := s.objectName(kind, t, documentID)
	if err != nil {
		return "", err
	}
	w := s.client.Bucket(s.cfg.Bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType(kind)
	if _, err := w.Write(data); err != nil {
		closeErr := w.Close()
		if closeErr != nil {
			return "", fmt.Errorf("write object %s: %w (close writer: %v)", name, err, closeErr)
		}
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	// Close must be called to finalize the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close writer for object %s: %w", name, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.cfg.Bucket, name), nil
}

// Read downloads the artifact content.
func (s *Store) Read(ctx context.Context, kind lawdoc.ArtifactKind, t lawdoc.DocumentType, documentID string) ([]byte, error) {
	name, err := s.objectName(kind, t, documentID)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.cfg.Bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", name, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", name, err)
	}
	return data, nil
}

func (s *Store) objectName(kind lawdoc.ArtifactKind, t lawdoc.DocumentType, documentID string) (string, error) {
	rel, err := storage.ObjectPath(kind, t, documentID)
	if err != nil {
		return "", err
	}
	prefix := strings.Trim(s.cfg.Prefix, "/")
	if prefix == "" {
		return rel, nil
	}
	return prefix + "/" + rel, nil
}

func contentType(kind lawdoc.ArtifactKind) string {
	switch kind {
	case lawdoc.ArtifactPDF:
		return "application/pdf"
	case lawdoc.ArtifactArticles:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}
