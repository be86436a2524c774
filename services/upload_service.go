package services

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ObjectStorage is implemented by pkg/aws.ObjectStore.
type ObjectStorage interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, map[string]string, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

var uploadExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

var uploadPrefixes = map[models.UploadKind]string{
	models.UploadKindEyeExam:      "eye-exams/",
	models.UploadKindProductImage: "products/",
	models.UploadKindBrandLogo:    "brands/",
}

// Caller identifies who is uploading.
type Caller struct {
	UserID  string
	IsAdmin bool
}

type UploadService struct {
	storage  ObjectStorage
	maxBytes int64
	expiry   time.Duration
	logger   *zap.Logger
}

func NewUploadService(storage ObjectStorage, maxBytes int64, expiry time.Duration, logger *zap.Logger) *UploadService {
	return &UploadService{storage: storage, maxBytes: maxBytes, expiry: expiry, logger: logger}
}

func (s *UploadService) MaxBytes() int64 { return s.maxBytes }

// Presign returns a URL the client can PUT the file to directly.
func (s *UploadService) Presign(ctx context.Context, caller Caller, req *models.PresignUploadRequest) (*models.PresignUploadResponse, error) {
	if s.storage == nil {
		return nil, apperrors.ErrServiceUnavailable
	}
	key, err := s.objectKey(caller, req.Kind, req.ContentType)
	if err != nil {
		return nil, err
	}

	url, headers, err := s.storage.PresignPut(ctx, key, req.ContentType, s.expiry)
	if err != nil {
		s.logger.Error("Failed to presign upload", zap.String("key", key), zap.Error(err))
		return nil, apperrors.Upstream("Failed to prepare upload", err)
	}
	return &models.PresignUploadResponse{
		UploadURL: url,
		Key:       key,
		Headers:   headers,
		ExpiresIn: int(s.expiry.Seconds()),
	}, nil
}

// Upload streams body to object storage. The content type is sniffed from
// the first bytes rather than trusted from the client.
func (s *UploadService) Upload(ctx context.Context, caller Caller, kind models.UploadKind, size int64, body io.Reader) (*models.UploadResponse, error) {
	if s.storage == nil {
		return nil, apperrors.ErrServiceUnavailable
	}
	if _, ok := uploadPrefixes[kind]; !ok {
		return nil, apperrors.BadRequest("Invalid upload kind")
	}
	if size <= 0 {
		return nil, apperrors.BadRequest("File is empty")
	}
	if size > s.maxBytes {
		return nil, apperrors.New(http.StatusRequestEntityTooLarge, "File is too large", nil)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, apperrors.BadRequest("Failed to read file")
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	key, err := s.objectKey(caller, kind, contentType)
	if err != nil {
		return nil, err
	}

	reader := io.LimitReader(io.MultiReader(bytes.NewReader(head), body), s.maxBytes)
	location, err := s.storage.Upload(ctx, key, contentType, reader)
	if err != nil {
		s.logger.Error("Failed to upload file", zap.String("key", key), zap.Error(err))
		return nil, apperrors.Upstream("Failed to upload file", err)
	}

	s.logger.Info("File uploaded", zap.String("key", key), zap.String("user_id", caller.UserID), zap.Int64("size", size))
	return &models.UploadResponse{Key: key, Location: location, Size: size}, nil
}

// FileURL returns a short-lived download URL. Users may only read their own
// eye exam documents.
func (s *UploadService) FileURL(ctx context.Context, caller Caller, key string) (*models.FileURLResponse, error) {
	if s.storage == nil {
		return nil, apperrors.ErrServiceUnavailable
	}
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return nil, apperrors.BadRequest("Invalid key")
	}
	if !canRead(caller, key) {
		return nil, apperrors.ErrForbidden
	}

	url, err := s.storage.PresignGet(ctx, key, s.expiry)
	if err != nil {
		return nil, apperrors.Upstream("Failed to create download URL", err)
	}
	return &models.FileURLResponse{URL: url, ExpiresIn: int(s.expiry.Seconds())}, nil
}

func (s *UploadService) objectKey(caller Caller, kind models.UploadKind, contentType string) (string, error) {
	prefix, ok := uploadPrefixes[kind]
	if !ok {
		return "", apperrors.BadRequest("Invalid upload kind")
	}
	if kind.AdminOnly() && !caller.IsAdmin {
		return "", apperrors.ErrForbidden
	}
	ext, ok := uploadExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", apperrors.BadRequest("Unsupported file type")
	}
	if kind == models.UploadKindEyeExam {
		prefix += caller.UserID + "/"
	}
	return prefix + uuid.NewString() + ext, nil
}

func canRead(caller Caller, key string) bool {
	if caller.IsAdmin {
		return true
	}
	eyeExams := uploadPrefixes[models.UploadKindEyeExam]
	if strings.HasPrefix(key, eyeExams) {
		return strings.HasPrefix(key, eyeExams+caller.UserID+"/")
	}
	// catalog images are public
	return strings.HasPrefix(key, uploadPrefixes[models.UploadKindProductImage]) ||
		strings.HasPrefix(key, uploadPrefixes[models.UploadKindBrandLogo])
}
