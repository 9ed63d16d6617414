// internal/services/storage_service.go
package services

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ludora/ludora-backend/internal/config"
)

// StorageService uploads product content to S3 and hands out short-lived
// download URLs. Paid content is never served from a public bucket path.
type StorageService struct {
	uploader      *s3manager.Uploader
	s3Client      *s3.S3
	bucket        string
	cloudFrontURL string
}

var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
	".zip":  "application/zip",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

func NewStorageService(cfg config.AWSConfig) (*StorageService, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		uploader:      s3manager.NewUploader(sess),
		s3Client:      s3.New(sess),
		bucket:        cfg.S3Bucket,
		cloudFrontURL: cfg.CloudFrontURL,
	}, nil
}

type UploadResult struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

func (s *StorageService) UploadProductFile(productID uuid.UUID, fileHeader *multipart.FileHeader) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		return nil, errors.New("file type not allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	key := fmt.Sprintf("products/%s/%s%s", productID, uuid.New(), ext)

	_, err = s.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		logrus.WithError(err).WithField("key", key).Error("S3 upload failed")
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return &UploadResult{
		Key:  key,
		URL:  s.publicURL(key),
		Size: fileHeader.Size,
	}, nil
}

// PresignedDownloadURL returns a time-limited URL for paid content. Callers
// must have already passed the access check.
func (s *StorageService) PresignedDownloadURL(key string, expiry time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("file key is empty")
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign download URL: %w", err)
	}
	return url, nil
}

func (s *StorageService) DeleteFile(key string) error {
	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *StorageService) publicURL(key string) string {
	if s.cloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.cloudFrontURL, "/"), key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}
