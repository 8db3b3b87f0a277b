package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"

	"kesef/internal/domain/document"
)

// MaxDocumentSize caps how much of an object is read into memory.
const MaxDocumentSize = 32 << 20

var ErrInvalidPath = errors.New("invalid document storage path")

// Loader implements extraction.DocumentLoader. Paths of the form
// gs://bucket/object are read from Cloud Storage; anything else is resolved
// under the local directory.
type Loader struct {
	localDir string

	mu     sync.Mutex
	client *storage.Client
}

func NewLoader(localDir string) *Loader {
	return &Loader{localDir: localDir}
}

func (l *Loader) Load(ctx context.Context, doc *document.Document) ([]byte, error) {
	if strings.HasPrefix(doc.StoragePath, "gs://") {
		bucket, object, err := ParseURI(doc.StoragePath)
		if err != nil {
			return nil, err
		}
		return l.fetch(ctx, bucket, object)
	}
	return l.readLocal(doc.StoragePath)
}

// Close releases the storage client if one was opened.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client == nil {
		return nil
	}
	err := l.client.Close()
	l.client = nil
	return err
}

func (l *Loader) storageClient(ctx context.Context) (*storage.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client != nil {
		return l.client, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	l.client = client
	return client, nil
}

func (l *Loader) fetch(ctx context.Context, bucket, object string) ([]byte, error) {
	client, err := l.storageClient(ctx)
	if err != nil {
		return nil, err
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object %s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	return readLimited(r)
}

func (l *Loader) readLocal(path string) ([]byte, error) {
	if path == "" || l.localDir == "" {
		return nil, ErrInvalidPath
	}
	clean := filepath.Clean("/" + path)
	full := filepath.Join(l.localDir, clean)

	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open local document: %w", err)
	}
	defer f.Close()

	return readLimited(f)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", MaxDocumentSize)
	}
	return data, nil
}

// ParseURI splits gs://bucket/path/to/object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidPath, uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidPath, uri)
	}
	return parts[0], parts[1], nil
}
