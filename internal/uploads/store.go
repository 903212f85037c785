package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyFilename = errors.New("empty filename")

// Store persists uploaded files and returns the stored key. The key is what
// gets recorded on tasks and assignments.
type Store interface {
	Save(ctx context.Context, originalFilename string, r io.Reader) (string, error)
}

// StorageKey builds a collision-free key from the original filename. Only the
// base name is kept, so a crafted filename cannot escape the uploads root.
func StorageKey(originalFilename string) (string, error) {
	base := filepath.Base(strings.TrimSpace(originalFilename))

	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", ErrEmptyFilename
	}

	// strip anything shells and url paths tend to choke on
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, base)

	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.NewString()[:8], base), nil
}
