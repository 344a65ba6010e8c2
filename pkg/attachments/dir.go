package attachments

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// textSuffix names the sidecar file holding the extracted text of a document.
const textSuffix = ".txt"

// DirStore serves attachments from a directory. The attachment id is the file
// name relative to the root. The MIME type is sniffed from the contents. The
// extracted text of a non-text document is read from a "<id>.txt" sidecar.
type DirStore struct {
	root string
}

var _ Store = (*DirStore)(nil)

// NewDirStore creates a store rooted at dir.
func NewDirStore(dir string) (*DirStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("attachments: open dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("attachments: %s is not a directory", dir)
	}

	return &DirStore{root: dir}, nil
}

func (s *DirStore) path(id string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(id))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("attachments: invalid id %q", id)
	}
	return filepath.Join(s.root, clean), nil
}

// ResolveMany implements Store.
func (s *DirStore) ResolveMany(ctx context.Context, ids []string) (map[string]Attachment, error) {
	out := make(map[string]Attachment, len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		p, err := s.path(id)
		if err != nil {
			continue
		}

		mt, err := mimetype.DetectFile(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return out, fmt.Errorf("attachments: detect %q: %w", id, err)
		}

		out[id] = Attachment{
			ID:   id,
			Kind: KindOf(mt.String()),
			MIME: mt.String(),
			Name: filepath.Base(p),
		}
	}

	return out, nil
}

// FetchBytes implements Store.
func (s *DirStore) FetchBytes(_ context.Context, a Attachment) ([]byte, error) {
	p, err := s.path(a.ID)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("attachments: %q: %w", a.ID, ErrNotFound)
	}

	return b, err
}

// FetchText implements Store. Plain-text files are returned as is; other
// documents need a sidecar.
func (s *DirStore) FetchText(ctx context.Context, a Attachment, _ string) (string, error) {
	if strings.HasPrefix(a.MIME, "text/") {
		b, err := s.FetchBytes(ctx, a)
		return string(b), err
	}

	p, err := s.path(a.ID + textSuffix)
	if err != nil {
		return "", err
	}

	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("attachments: no extracted text for %q: %w", a.ID, ErrNotFound)
	}

	return string(b), err
}
