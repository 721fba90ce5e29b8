package validation

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/coinledger/backend/src/logger"
)

// AllowedImageContentTypes is a map for quick lookup of allowed
// client-declared MIME types for screenshot attachments.
var AllowedImageContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  false, // animated uploads explicitly disallowed
}

// ValidateClientContentType checks the Content-Type header provided by the client.
func ValidateClientContentType(contentType string) error {
	normalized := strings.ToLower(strings.Split(contentType, ";")[0])
	if allowed, exists := AllowedImageContentTypes[normalized]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type for attachment", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for image upload", contentType)
	}
	return nil
}

// ValidateImageContentByMagicBytes checks the actual file content
// signature rather than trusting the declared header. Returns the
// detected content type on success.
func ValidateImageContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	// Reset the read pointer so the storage layer can read the full file.
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	if n == 0 {
		return "", fmt.Errorf("file is empty")
	}

	detected := http.DetectContentType(buffer[:n])
	detected = strings.ToLower(strings.Split(detected, ";")[0])

	if allowed, exists := AllowedImageContentTypes[detected]; !exists || !allowed {
		logger.L.Warn("Disallowed detected attachment content type", "detectedContentType", detected)
		return detected, fmt.Errorf("detected file content type '%s' is not allowed", detected)
	}

	logger.L.Debug("Attachment content type validated", "detectedContentType", detected)
	return detected, nil
}
