// Package service contains the application's business logic, sitting between
// the HTTP handlers and the repositories.
package service

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/google/uuid"

	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	// MaxUploadBytes is the per-file upload limit.
	MaxUploadBytes = 5 << 20

	// MaxFilesPerRequest bounds how many images one request may carry.
	MaxFilesPerRequest = 10
)

var allowedImageExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// AttachmentService stores and removes uploaded image files on local disk.
type AttachmentService struct {
	uploadDir string
}

// NewAttachmentService returns an AttachmentService writing under uploadDir.
func NewAttachmentService(uploadDir string) *AttachmentService {
	return &AttachmentService{uploadDir: uploadDir}
}

// UploadDir returns the directory files are written to.
func (s *AttachmentService) UploadDir() string {
	return s.uploadDir
}

// Validate checks a single file header against the upload rules without
// reading the file body: extension, declared content type and size.
func (s *AttachmentService) Validate(fh *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedImageExtensions[ext] {
		observability.UploadsRejected.WithLabelValues("extension").Inc()
		return models.NewValidationError(fmt.Sprintf("File type not allowed: %s", fh.Filename))
	}

	if ct := normalizeContentType(fh.Header.Get("Content-Type")); !isAllowedImageMIME(ct) {
		observability.UploadsRejected.WithLabelValues("content_type").Inc()
		return models.NewValidationError(fmt.Sprintf("Content type not allowed: %s", fh.Filename))
	}

	if fh.Size > MaxUploadBytes {
		observability.UploadsRejected.WithLabelValues("size").Inc()
		return models.NewValidationError(fmt.Sprintf("File too large (max %dMB): %s", MaxUploadBytes/(1024*1024), fh.Filename))
	}
	return nil
}

// ValidateAll checks the file count and every file header before anything is
// written, so a bad file in the batch rejects the whole request up front.
func (s *AttachmentService) ValidateAll(files []*multipart.FileHeader) error {
	if len(files) > MaxFilesPerRequest {
		observability.UploadsRejected.WithLabelValues("count").Inc()
		return models.NewValidationError(fmt.Sprintf("Too many files (max %d)", MaxFilesPerRequest))
	}
	for _, fh := range files {
		if err := s.Validate(fh); err != nil {
			return err
		}
	}
	return nil
}

// Save writes one validated upload to disk and returns the stored path. The
// file body is sniffed and decoded so a renamed non-image cannot slip past
// the header checks.
func (s *AttachmentService) Save(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", models.NewInternalError(err)
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if int64(len(content)) > MaxUploadBytes {
		observability.UploadsRejected.WithLabelValues("size").Inc()
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB): %s", MaxUploadBytes/(1024*1024), fh.Filename))
	}

	if !isAllowedImageMIME(http.DetectContentType(content)) {
		observability.UploadsRejected.WithLabelValues("sniff").Inc()
		return "", models.NewValidationError(fmt.Sprintf("File content is not an image: %s", fh.Filename))
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(content)); err != nil {
		observability.UploadsRejected.WithLabelValues("decode").Inc()
		return "", models.NewValidationError(fmt.Sprintf("Invalid image file: %s", fh.Filename))
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := fmt.Sprintf("images-%d-%s%s", time.Now().UnixNano(), uuid.NewString()[:8], ext)
	path := filepath.ToSlash(filepath.Join(s.uploadDir, name))

	if err := os.MkdirAll(s.uploadDir, 0o750); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return "", models.NewInternalError(err)
	}

	observability.UploadsAccepted.Inc()
	return path, nil
}

// SaveAll writes every file and returns the stored paths. If any write
// fails, files written so far are removed before the error is returned.
func (s *AttachmentService) SaveAll(files []*multipart.FileHeader) ([]string, error) {
	var paths []string
	for _, fh := range files {
		path, err := s.Save(fh)
		if err != nil {
			s.Cleanup(paths)
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Remove deletes one stored file, best-effort. A missing file is not an
// error: the row it backed is already gone or was never written.
func (s *AttachmentService) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			middleware.Logger.Warn("Failed to remove attachment file",
				"path", path,
				"error", err.Error(),
			)
		}
		return
	}
	observability.AttachmentsDeleted.Inc()
}

// RemoveAll deletes the given stored files, best-effort.
func (s *AttachmentService) RemoveAll(paths []string) {
	for _, p := range paths {
		s.Remove(p)
	}
}

// Cleanup removes files written during a request whose persistence step
// failed, so no orphans accumulate on disk.
func (s *AttachmentService) Cleanup(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err == nil {
			observability.OrphanFilesCleaned.Inc()
		} else if !os.IsNotExist(err) {
			middleware.Logger.Warn("Failed to clean up orphaned upload",
				"path", p,
				"error", err.Error(),
			)
		}
	}
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
