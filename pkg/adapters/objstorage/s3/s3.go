package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jademcosta/pescador/pkg/logger"
	"gopkg.in/yaml.v2"
)

const TYPE string = "s3"
const startupTimeout = 20 * time.Second

type downloadAPI interface {
	Download(ctx context.Context, w io.WriterAt, input *awsS3.GetObjectInput,
		options ...func(*manager.Downloader)) (int64, error)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *awsS3.PutObjectInput,
		optFns ...func(*awsS3.Options)) (*awsS3.PutObjectOutput, error)
}

type Config struct {
	TimeoutInMillis int64  `yaml:"timeout_milliseconds"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	CredentialsFile string `yaml:"credentials_file"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	Prefix          string `yaml:"prefix"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

type Bucket struct {
	name            string
	region          string
	fixedPrefix     string
	timeoutInMillis int64
	downloader      downloadAPI
	client          putObjectAPI
	log             *slog.Logger
}

func New(l *slog.Logger, c *Config) (*Bucket, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name cannot be empty")
	}

	ctx, cancelFunc := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelFunc()

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.Region),
		awsconfig.WithBaseEndpoint(c.Endpoint),
	}

	if c.CredentialsFile != "" {
		opts = append(opts, awsconfig.WithSharedCredentialsFiles([]string{c.CredentialsFile}))
	}

	if c.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("couldn't load default AWS configuration: %w", err)
	}

	client := awsS3.NewFromConfig(sdkConfig, func(o *awsS3.Options) {
		o.UsePathStyle = c.ForcePathStyle
	})

	return &Bucket{
		name:            c.Bucket,
		region:          c.Region,
		fixedPrefix:     c.Prefix,
		timeoutInMillis: c.TimeoutInMillis,
		downloader:      manager.NewDownloader(client),
		client:          client,
		log:             l.With(logger.ObjStorageTypeKey, TYPE),
	}, nil
}

func ParseConfig(confData []byte) (*Config, error) {
	conf := &Config{}

	err := yaml.Unmarshal(confData, conf)
	if err != nil {
		return conf, fmt.Errorf("error parsing S3 config: %w", err)
	}

	return conf, nil
}

// Download fetches the object into destDir, flattening the key to its
// basename. Rerunning for the same key overwrites the previous file.
func (bucket *Bucket) Download(ctx context.Context, key string, destDir string) (string, error) {
	err := os.MkdirAll(destDir, 0o755)
	if err != nil {
		return "", fmt.Errorf("error creating destination directory: %w", err)
	}

	localPath := filepath.Join(destDir, path.Base(key))
	file, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("error creating destination file: %w", err)
	}
	defer file.Close()

	ctx, cancelFunc := bucket.operationContext(ctx)
	defer cancelFunc()

	fullKey := mergeParts(bucket.fixedPrefix, key)
	bucket.log.Debug("downloading object", "bucket", bucket.name, "key", fullKey)

	_, err = bucket.downloader.Download(ctx, file, &awsS3.GetObjectInput{
		Bucket: aws.String(bucket.name),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		_ = os.Remove(localPath)
		return "", fmt.Errorf("error downloading from S3: %w", err)
	}

	return localPath, nil
}

func (bucket *Bucket) Upload(ctx context.Context, key string, body io.Reader) error {
	ctx, cancelFunc := bucket.operationContext(ctx)
	defer cancelFunc()

	fullKey := mergeParts(bucket.fixedPrefix, key)
	bucket.log.Debug("uploading object", "bucket", bucket.name, "key", fullKey)

	_, err := bucket.client.PutObject(ctx, &awsS3.PutObjectInput{
		Bucket: aws.String(bucket.name),
		Key:    aws.String(fullKey),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("error when uploading to S3: %w", err)
	}

	return nil
}

func (bucket *Bucket) Type() string {
	return TYPE
}

func (bucket *Bucket) Name() string {
	return bucket.name
}

func (bucket *Bucket) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if bucket.timeoutInMillis == 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(bucket.timeoutInMillis)*time.Millisecond)
}

func mergeParts(fixedPrefix string, key string) string {
	result := strings.Trim(fixedPrefix, "/") + "/" + strings.Trim(key, "/")
	return strings.Trim(result, "/")
}
