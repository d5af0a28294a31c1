package docstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Store reads the document from Amazon S3 or a compatible object
// store. Without credentials in the URI it reads anonymously, which
// works for publicly readable buckets.
type S3Store struct {
	client *s3.S3
	bucket string
	key    string
	log    *slog.Logger
}

// newS3Store creates an S3Store from an s3:// URI. The host is the
// bucket, the path is the object key, and region/endpoint come from
// query parameters. Static credentials may be given as userinfo.
func newS3Store(u *url.URL, log *slog.Logger) (*S3Store, error) {
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("%w: s3 URI needs a bucket and object key", ErrInvalidLocationURI)
	}

	region := u.Query().Get("region")
	if region == "" {
		region = "us-east-1"
	}

	cfg := aws.Config{Region: aws.String(region)}
	if endpoint := u.Query().Get("endpoint"); endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	if user := u.User; user != nil {
		secret, _ := user.Password()
		cfg.Credentials = credentials.NewStaticCredentials(user.Username(), secret, "")
	} else {
		cfg.Credentials = credentials.AnonymousCredentials
		log.Debug("No S3 credentials in location URI, reading anonymously")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("creating S3 session: %w", err)
	}

	return &S3Store{
		client: s3.New(sess),
		bucket: bucket,
		key:    key,
		log:    log,
	}, nil
}

// Fetch downloads the document object. Missing objects map to
// ErrDocumentNotFound.
func (s *S3Store) Fetch(ctx context.Context) ([]byte, error) {
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("fetching document from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}

	s.log.Debug("Fetched document from S3",
		"bucket", s.bucket,
		"key", s.key,
		"size", len(data))
	return data, nil
}

// Name returns a unique identifier for this store.
func (s *S3Store) Name() string {
	return fmt.Sprintf("s3-%s", s.bucket)
}
