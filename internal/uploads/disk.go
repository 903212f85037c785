package uploads

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskStore writes uploads under a single local directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	err := os.MkdirAll(dir, 0o755)

	if err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}

	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Save(ctx context.Context, originalFilename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key, err := StorageKey(originalFilename)

	if err != nil {
		return "", err
	}

	dst := filepath.Join(s.dir, key)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)

	if err != nil {
		return "", fmt.Errorf("open %s: %w", dst, err)
	}

	_, err = io.Copy(f, r)

	if err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", dst, err)
	}

	if err := f.Close(); err != nil {
		return "", err
	}

	return key, nil
}
