package services

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/common"
	sc "github.com/dmitrijs2005/authcrud/internal/server/config"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) error {
		_, err := c.DeleteObject(ctx, in)
		return err
	}
)

// MediaUpload is returned when a media record is registered: the record and
// the presigned PUT URL the client uploads the bytes to.
type MediaUpload struct {
	Media     *models.Media `json:"media"`
	UploadURL string        `json:"uploadUrl"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// MediaDownload carries a presigned GET URL for a media record.
type MediaDownload struct {
	Media       *models.Media `json:"media"`
	DownloadURL string        `json:"downloadUrl"`
	ExpiresAt   time.Time     `json:"expiresAt"`
}

type MediaService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	now         func() time.Time
}

func NewMediaService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config) *MediaService {
	return &MediaService{
		db:          db,
		repomanager: repomanager,
		config:      config,
		now:         time.Now,
	}
}

// StorageKey builds a date-partitioned, collision-free object key that keeps
// the file extension.
func StorageKey(now time.Time, fileName string) string {
	ext := strings.ToLower(path.Ext(path.Base(fileName)))
	return fmt.Sprintf("media/%d/%02d/%02d/%v%s", now.Year(), now.Month(), now.Day(), uuid.New(), ext)
}

func (s *MediaService) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3AccessKey,
			s.config.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

func (s *MediaService) lifetime() time.Duration {
	if s.config.MediaURLLifetime > 0 {
		return s.config.MediaURLLifetime
	}
	return 15 * time.Minute
}

// CreateUpload registers a media record and returns a presigned PUT URL.
func (s *MediaService) CreateUpload(ctx context.Context, uploaderID, fileName, contentType string) (*MediaUpload, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, common.NewValidationError("fileName", "file name is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	bucket := s.config.S3Bucket
	key := StorageKey(now, fileName)

	// Presigned PUT
	req, err := presignPutObject(newS3PresignClient(client), ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(s.lifetime()))
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	m, err := s.repomanager.Media(s.db).Create(ctx, &models.Media{
		FileName:    fileName,
		ContentType: contentType,
		StorageKey:  key,
		UploadedBy:  uploaderID,
	})
	if err != nil {
		return nil, fmt.Errorf("create media: %w", err)
	}

	return &MediaUpload{Media: m, UploadURL: req.URL, ExpiresAt: now.Add(s.lifetime())}, nil
}

// Download returns a presigned GET URL for the media with id.
func (s *MediaService) Download(ctx context.Context, id string) (*MediaDownload, error) {
	m, err := s.repomanager.Media(s.db).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}
	bucket := s.config.S3Bucket

	// Presigned GET
	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &m.StorageKey,
	}, s3.WithPresignExpires(s.lifetime()))
	if err != nil {
		return nil, fmt.Errorf("presign download: %w", err)
	}

	return &MediaDownload{Media: m, DownloadURL: req.URL, ExpiresAt: s.now().Add(s.lifetime())}, nil
}

// Delete removes the object from the bucket and then its record.
func (s *MediaService) Delete(ctx context.Context, id string) error {
	repo := s.repomanager.Media(s.db)
	m, err := repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}
	bucket := s.config.S3Bucket
	if err := deleteObject(client, ctx, &s3.DeleteObjectInput{Bucket: &bucket, Key: &m.StorageKey}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return repo.Delete(ctx, id)
}
