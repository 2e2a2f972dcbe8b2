package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go/logging"
	"github.com/cockroachdb/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/releasedesk/backend/internal/config"
	"github.com/releasedesk/backend/internal/models"
)

// Kinds of staged uploads
const (
	KindArtwork  = "artwork"
	KindAudio    = "audio"
	KindDocument = "kyc"
)

var (
	ErrUnsupportedMedia = errors.New("unsupported file type")
	ErrEmptyUpload      = errors.New("uploaded file is empty")
	ErrUploadTooLarge   = errors.New("uploaded file is too large")
)

var allowedMIME = map[string][]string{
	KindArtwork:  {"image/jpeg", "image/png"},
	KindAudio:    {"audio/flac", "audio/mpeg", "audio/wav", "audio/aac", "audio/mp4", "audio/ogg", "audio/x-m4a"},
	KindDocument: {"application/pdf", "image/jpeg", "image/png"},
}

// ObjectStore is the subset of S3 the staging area needs
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// S3Store is an ObjectStore on one bucket of an S3 compatible endpoint
type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(cfg *config.Config) (*S3Store, error) {
	client, err := buildClient(cfg.MediaS3Endpoint, cfg.MediaS3Region, cfg.MediaS3AccessKeyID, cfg.MediaS3SecretAccessKey, cfg.MediaS3UsePathStyle)
	if err != nil {
		return nil, err
	}
	return &S3Store{client: client, bucket: cfg.StagingBucket}, nil
}

func buildClient(endpoint, region, key, secret string, pathStyle bool) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithLogger(logging.NewStandardLogger(io.Discard)),
	}
	if key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return client, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	uploader := manager.NewUploader(s.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        body,
		ContentType: &contentType,
		ACL:         s3types.ObjectCannedACLPrivate,
	}, func(u *manager.Uploader) { u.PartSize = 10 * 1024 * 1024 })
	return errors.Wrapf(err, "put %s", key)
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", key)
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key})
	return errors.Wrapf(err, "delete %s", key)
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			ContinuationToken: token,
			MaxKeys:           aws.Int32(1000),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "list %s", prefix)
		}
		for _, o := range out.Contents {
			keys = append(keys, aws.ToString(o.Key))
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	return keys, nil
}

// StagingService holds uploads between the wizard step that accepts them and
// the submission that forwards them
type StagingService struct {
	store    ObjectStore
	maxBytes int64
}

func NewStagingService(store ObjectStore, cfg *config.Config) *StagingService {
	return &StagingService{store: store, maxBytes: cfg.MaxUploadBytes()}
}

// Stage sniffs the content type of body, checks it against kind and stores it
// under staging/<session>/<kind>/<uuid><ext>
func (s *StagingService) Stage(ctx context.Context, sessionID, kind, filename string, size int64, body io.Reader) (*models.StagedFile, error) {
	if size == 0 {
		return nil, ErrEmptyUpload
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, errors.Wrapf(ErrUploadTooLarge, "%d bytes", size)
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "read upload")
	}
	if n == 0 {
		return nil, ErrEmptyUpload
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if !mimeAllowed(kind, mt) {
		return nil, errors.Wrapf(ErrUnsupportedMedia, "%s for %s", mt.String(), kind)
	}

	key := fmt.Sprintf("staging/%s/%s/%s%s", sessionID, kind, uuid.New().String(), mt.Extension())
	ctype := baseMIME(mt.String())
	if err := s.store.Put(ctx, key, io.MultiReader(bytes.NewReader(head), body), ctype); err != nil {
		return nil, err
	}
	return &models.StagedFile{
		Key:       key,
		Filename:  path.Base(filename),
		MimeType:  ctype,
		SizeBytes: size,
	}, nil
}

// Open returns a staged file as a multipart part for the upstream API
func (s *StagingService) Open(ctx context.Context, field string, file *models.StagedFile) (FilePart, io.Closer, error) {
	if file == nil || file.Key == "" {
		return FilePart{}, nil, errors.Newf("%s is not staged", field)
	}
	rc, err := s.store.Open(ctx, file.Key)
	if err != nil {
		return FilePart{}, nil, err
	}
	name := file.Filename
	if name == "" {
		name = path.Base(file.Key)
	}
	return FilePart{Field: field, Filename: name, ContentType: file.MimeType, Body: rc}, rc, nil
}

// Discard deletes staged files, ignoring nil entries
func (s *StagingService) Discard(ctx context.Context, files ...*models.StagedFile) error {
	var errs error
	for _, f := range files {
		if f == nil || f.Key == "" {
			continue
		}
		if err := s.store.Delete(ctx, f.Key); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

// DiscardSession deletes every file staged by a session
func (s *StagingService) DiscardSession(ctx context.Context, sessionID string) error {
	keys, err := s.store.List(ctx, fmt.Sprintf("staging/%s/", sessionID))
	if err != nil {
		return err
	}
	var errs error
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

func mimeAllowed(kind string, mt *mimetype.MIME) bool {
	for _, allowed := range allowedMIME[kind] {
		if mt.Is(allowed) {
			return true
		}
	}
	return false
}

func baseMIME(m string) string {
	if i := strings.Index(m, ";"); i >= 0 {
		return strings.TrimSpace(m[:i])
	}
	return m
}
