package util

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ValidateMimeType sniffs the first 512 bytes of reader. allowedTypes holds
// prefixes ("image/") or full types ("application/pdf").
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}

	return mimeType, errors.New("invalid file type: " + mimeType)
}

func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeImage)
}

func IsVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeVideo) || mimeType == "application/x-mpegURL"
}

func IsAudio(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeAudio)
}

// ObjectName builds a collision free storage key under folder.
func ObjectName(folder, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return folder + "/" + uuid.New().String() + ext
}
