package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/authcrud/internal/common"
	sc "github.com/dmitrijs2005/authcrud/internal/server/config"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMediaService(t *testing.T) (*MediaService, *fakeRepoManager) {
	t.Helper()
	rm := newFakeRepoManager()
	cfg := &sc.Config{
		S3Region:         "us-east-1",
		S3AccessKey:      "minioadmin",
		S3SecretKey:      "minioadmin",
		S3BaseEndpoint:   "http://127.0.0.1:9000",
		S3Bucket:         "media",
		MediaURLLifetime: 10 * time.Minute,
	}
	svc := NewMediaService(nil, rm, cfg)
	svc.now = func() time.Time { return time.Date(2025, 4, 5, 6, 7, 8, 0, time.UTC) }
	return svc, rm
}

// stubS3 replaces the AWS seams for the duration of the test.
func stubS3(t *testing.T) {
	t.Helper()
	origLoad, origNew, origPre := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient
	origPut, origGet, origDel := presignPutObject, presignGetObject, deleteObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient = origLoad, origNew, origPre
		presignPutObject, presignGetObject, deleteObject = origPut, origGet, origDel
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://127.0.0.1:9000" || !opts.UsePathStyle {
			t.Fatalf("s3 options not applied: %+v", opts)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
}

func TestStorageKey(t *testing.T) {
	key := StorageKey(time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC), "../Photo.PNG")
	assert.Regexp(t, regexp.MustCompile(`^media/2025/04/05/[0-9a-f-]{36}\.png$`), key)
}

func TestMediaService_CreateUpload(t *testing.T) {
	stubS3(t)
	svc, rm := newMediaService(t)

	var gotKey, gotType string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotKey, gotType = *in.Key, *in.ContentType
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		if po.Expires != 10*time.Minute {
			t.Fatalf("unexpected expiry: %v", po.Expires)
		}
		return &v4.PresignedHTTPRequest{URL: "http://s3/put"}, nil
	}

	up, err := svc.CreateUpload(context.Background(), "user-1", "cat.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://s3/put", up.UploadURL)
	assert.Equal(t, gotKey, up.Media.StorageKey)
	assert.Equal(t, "image/jpeg", gotType)
	assert.Equal(t, "user-1", up.Media.UploadedBy)
	assert.Equal(t, svc.now().Add(10*time.Minute), up.ExpiresAt)
	assert.Contains(t, rm.media.byID, up.Media.ID)
}

func TestMediaService_CreateUploadValidation(t *testing.T) {
	svc, _ := newMediaService(t)
	_, err := svc.CreateUpload(context.Background(), "", "  ", "")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestMediaService_CreateUploadPresignErrorStoresNothing(t *testing.T) {
	stubS3(t)
	svc, rm := newMediaService(t)
	presignPutObject = func(*s3.PresignClient, context.Context, *s3.PutObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("sign-fail")
	}

	_, err := svc.CreateUpload(context.Background(), "", "a.txt", "")
	assert.ErrorContains(t, err, "sign-fail")
	assert.Empty(t, rm.media.byID)
}

func TestMediaService_Download(t *testing.T) {
	stubS3(t)
	svc, rm := newMediaService(t)
	rm.media.byID["m1"] = &models.Media{ID: "m1", StorageKey: "media/k.png"}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if *in.Bucket != "media" || *in.Key != "media/k.png" {
			t.Fatalf("unexpected input: %s/%s", *in.Bucket, *in.Key)
		}
		return &v4.PresignedHTTPRequest{URL: "http://s3/get"}, nil
	}

	dl, err := svc.Download(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "http://s3/get", dl.DownloadURL)

	_, err = svc.Download(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMediaService_ClientFactoryError(t *testing.T) {
	svc, rm := newMediaService(t)
	rm.media.byID["m1"] = &models.Media{ID: "m1", StorageKey: "k"}

	orig := loadDefaultAWSConfig
	defer func() { loadDefaultAWSConfig = orig }()
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	_, err := svc.Download(context.Background(), "m1")
	if err == nil || err.Error() != "load-fail" {
		t.Fatalf("want load-fail, got %v", err)
	}
}

func TestMediaService_Delete(t *testing.T) {
	stubS3(t)
	svc, rm := newMediaService(t)
	rm.media.byID["m1"] = &models.Media{ID: "m1", StorageKey: "media/k.png"}

	var deleted string
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) error {
		deleted = *in.Key
		return nil
	}

	require.NoError(t, svc.Delete(context.Background(), "m1"))
	assert.Equal(t, "media/k.png", deleted)
	assert.NotContains(t, rm.media.byID, "m1")
}
