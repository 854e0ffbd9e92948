package repository

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/Astemirdum/library-desk/library/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type fileRepository struct {
	path string
	log  *zap.Logger
}

func NewFileRepository(path string, log *zap.Logger) (*fileRepository, error) {
	if path == "" {
		return nil, errors.New("catalog file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create catalog dir")
	}
	return &fileRepository{
		path: path,
		log:  log.Named("repo"),
	}, nil
}

// Load treats a missing file as an empty catalog.
func (r *fileRepository) Load(_ context.Context) ([]model.Book, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.log.Info("catalog file not found, starting empty", zap.String("path", r.path))
			return []model.Book{}, nil
		}
		return nil, errors.Wrap(err, "open catalog")
	}
	defer f.Close()

	books, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", r.path)
	}
	r.log.Debug("catalog loaded", zap.String("path", r.path), zap.Int("books", len(books)))
	return books, nil
}

// Save replaces the catalog file atomically: write a temp file next to it, fsync, rename.
func (r *fileRepository) Save(_ context.Context, books []model.Book) error {
	var buf bytes.Buffer
	if err := Encode(&buf, books); err != nil {
		return errors.Wrap(err, "encode catalog")
	}

	dir, base := filepath.Split(r.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp catalog")
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err = tmp.Write(buf.Bytes()); err != nil {
		cleanup()
		return errors.Wrap(err, "write temp catalog")
	}
	if err = tmp.Sync(); err != nil {
		cleanup()
		return errors.Wrap(err, "sync temp catalog")
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "close temp catalog")
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "chmod temp catalog")
	}
	if err = os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "replace catalog")
	}
	r.log.Debug("catalog saved", zap.String("path", r.path), zap.Int("books", len(books)))
	return nil
}
