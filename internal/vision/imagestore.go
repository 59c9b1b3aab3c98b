package vision

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/gatevision/platewatch/internal/anpr"
)

// ImageStore persists best plate crops as JPEGs under a flat data
// directory and hands out opaque filename refs.
type ImageStore struct {
	dir string
}

// NewImageStore creates the data directory if needed.
func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}
	return &ImageStore{dir: dir}, nil
}

// Save encodes the crop and writes it under a unique name. The
// returned ref is the bare filename stored on the vehicle record.
func (s *ImageStore) Save(plate string, trackID int64, crop anpr.Frame) (string, error) {
	mf, ok := crop.(*MatFrame)
	if !ok {
		return "", fmt.Errorf("crop is not a Mat-backed frame")
	}
	data, err := mf.EncodeJPEG()
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%d_%s.jpg", sanitizePlate(plate), trackID, uuid.NewString())
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write plate image: %w", err)
	}
	return name, nil
}

// Path resolves a ref to a readable file path. Refs are validated so a
// crafted filename cannot escape the data directory.
func (s *ImageStore) Path(ref string) (string, error) {
	if err := validateRef(ref); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, ref)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("plate image %q: %w", ref, err)
	}
	return path, nil
}

// Delete removes a stored image. Deleting a missing ref is not an
// error.
func (s *ImageStore) Delete(ref string) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete plate image %q: %w", ref, err)
	}
	return nil
}

func validateRef(ref string) error {
	if ref == "" || ref != filepath.Base(ref) || !strings.HasSuffix(ref, ".jpg") {
		return fmt.Errorf("invalid image ref %q", ref)
	}
	return nil
}

func sanitizePlate(plate string) string {
	if plate == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range plate {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
