package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/username/coinledger/backend/src/logger"
	"github.com/username/coinledger/backend/src/security/validation"
)

// AttachmentService stores screenshot images and hands back opaque
// references that entries carry in attachment_ref.
type AttachmentService interface {
	// Save validates and persists the image, returning the reference
	// and the public URL path it is served under.
	Save(file io.ReadSeeker, size int64) (ref string, url string, err error)
	Delete(ref string) error
	PublicURL(ref string) string
}

type diskAttachmentService struct {
	dir     string
	maxSize int64
}

// NewAttachmentService stores files on the local disk under dir. The
// directory is created on startup so the first upload cannot race it.
func NewAttachmentService(dir string, maxSize int64) (AttachmentService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %q: %w", dir, err)
	}
	return &diskAttachmentService{dir: dir, maxSize: maxSize}, nil
}

func (s *diskAttachmentService) Save(file io.ReadSeeker, size int64) (string, string, error) {
	if size > s.maxSize {
		return "", "", ErrAttachmentTooBig
	}

	detected, err := validation.ValidateImageContentByMagicBytes(file)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	ref := uuid.New().String() + extensionFor(detected)
	path := filepath.Join(s.dir, ref)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("failed to create attachment file: %w", err)
	}
	defer dst.Close()

	// Copy with a hard cap in case the declared size lied.
	written, err := io.Copy(dst, io.LimitReader(file, s.maxSize+1))
	if err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("failed to write attachment: %w", err)
	}
	if written > s.maxSize {
		os.Remove(path)
		return "", "", ErrAttachmentTooBig
	}

	logger.L.Info("Attachment stored", "ref", ref, "bytes", written)
	return ref, s.PublicURL(ref), nil
}

func (s *diskAttachmentService) Delete(ref string) error {
	// The ref is user-supplied on delete; refuse anything that is not a
	// bare filename.
	if ref == "" || ref != filepath.Base(ref) || strings.ContainsAny(ref, "/\\") {
		return ErrAttachmentMissing
	}
	err := os.Remove(filepath.Join(s.dir, ref))
	if os.IsNotExist(err) {
		return ErrAttachmentMissing
	}
	return err
}

func (s *diskAttachmentService) PublicURL(ref string) string {
	return "/uploads/" + ref
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
