package helpers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

type UploadConfig struct {
	MaxSizeBytes     int64
	AllowedMimeTypes []string
}

var DefaultCSVUploadConfig = UploadConfig{
	MaxSizeBytes: 10 * 1024 * 1024, // 10MB
	AllowedMimeTypes: []string{
		"text/plain",
		"text/csv",
	},
}

// OpenCSVFile opens path for reading after checking its size and sniffed
// content type. The returned file is positioned at the start.
func OpenCSVFile(path string, configs ...UploadConfig) (*os.File, error) {
	config := DefaultCSVUploadConfig
	if len(configs) > 0 {
		config = configs[0]
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if config.MaxSizeBytes > 0 && info.Size() > config.MaxSizeBytes {
		f.Close()
		return nil, fmt.Errorf("file size exceeds maximum limit of %d MB", config.MaxSizeBytes/(1024*1024))
	}

	buffer := make([]byte, 512)
	n, err := f.Read(buffer)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, err
	}
	mimeType, _, _ := strings.Cut(http.DetectContentType(buffer[:n]), ";")

	mimeTypeAllowed := false
	for _, allowedType := range config.AllowedMimeTypes {
		if mimeType == allowedType {
			mimeTypeAllowed = true
			break
		}
	}
	if !mimeTypeAllowed {
		f.Close()
		return nil, fmt.Errorf("invalid file type %s. Allowed types: %v", mimeType, config.AllowedMimeTypes)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
