package s3

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jademcosta/pescador/pkg/logger"
	"github.com/stretchr/testify/assert"
)

var llog = logger.NewDummy()

type mockedAWSS3Downloader struct {
	calledWith []*awsS3.GetObjectInput
	content    []byte
	err        error
}

func (mock *mockedAWSS3Downloader) Download(
	_ context.Context, w io.WriterAt, input *awsS3.GetObjectInput,
	_ ...func(*manager.Downloader),
) (int64, error) {
	mock.calledWith = append(mock.calledWith, input)
	if mock.err != nil {
		return 0, mock.err
	}

	n, err := w.WriteAt(mock.content, 0)
	return int64(n), err
}

type mockedAWSS3Putter struct {
	calledWith []*awsS3.PutObjectInput
	bodies     [][]byte
	err        error
}

func (mock *mockedAWSS3Putter) PutObject(
	_ context.Context, input *awsS3.PutObjectInput, _ ...func(*awsS3.Options),
) (*awsS3.PutObjectOutput, error) {
	mock.calledWith = append(mock.calledWith, input)
	if input.Body != nil {
		data, _ := io.ReadAll(input.Body)
		mock.bodies = append(mock.bodies, data)
	}
	if mock.err != nil {
		return nil, mock.err
	}
	return &awsS3.PutObjectOutput{}, nil
}

func testBucket(downloader downloadAPI, putter putObjectAPI, prefix string) *Bucket {
	return &Bucket{
		name:        "some-bucket",
		fixedPrefix: prefix,
		downloader:  downloader,
		client:      putter,
		log:         llog,
	}
}

const configYaml = `
bucket: my-bucket
region: us-east-1
endpoint: http://localhost:4566
credentials_file: /etc/pescador/aws-credentials
prefix: landing
force_path_style: true
timeout_milliseconds: 5000
`

func TestParseConfig(t *testing.T) {
	conf, err := ParseConfig([]byte(configYaml))
	assert.NoError(t, err, "should not error when parsing s3 config")

	assert.Equal(t, "my-bucket", conf.Bucket, "bucket doesn't match")
	assert.Equal(t, "us-east-1", conf.Region, "region doesn't match")
	assert.Equal(t, "http://localhost:4566", conf.Endpoint, "endpoint doesn't match")
	assert.Equal(t, "/etc/pescador/aws-credentials", conf.CredentialsFile, "credentials file doesn't match")
	assert.Equal(t, "landing", conf.Prefix, "prefix doesn't match")
	assert.True(t, conf.ForcePathStyle, "force path style doesn't match")
	assert.Equal(t, int64(5000), conf.TimeoutInMillis, "timeout doesn't match")
}

func TestNewErrorsOnEmptyBucket(t *testing.T) {
	_, err := New(llog, &Config{Region: "us-east-1"})
	assert.Error(t, err, "should error when bucket name is empty")
}

func TestDownloadFlattensKeyToBasename(t *testing.T) {
	downloader := &mockedAWSS3Downloader{content: []byte("csv content here")}
	sut := testBucket(downloader, &mockedAWSS3Putter{}, "")
	destDir := filepath.Join(t.TempDir(), "incoming")

	localPath, err := sut.Download(context.Background(), "inbox/report.csv", destDir)
	assert.NoError(t, err, "download should succeed")

	assert.Equal(t, filepath.Join(destDir, "report.csv"), localPath, "local path should use the key basename")
	assert.Equal(t, "some-bucket", aws.ToString(downloader.calledWith[0].Bucket), "bucket doesn't match")
	assert.Equal(t, "inbox/report.csv", aws.ToString(downloader.calledWith[0].Key), "key doesn't match")

	content, err := os.ReadFile(localPath)
	assert.NoError(t, err, "should read the downloaded file")
	assert.Equal(t, "csv content here", string(content), "content doesn't match")
}

func TestDownloadCreatesMissingDestinationDirectory(t *testing.T) {
	downloader := &mockedAWSS3Downloader{content: []byte("x")}
	sut := testBucket(downloader, &mockedAWSS3Putter{}, "")
	destDir := filepath.Join(t.TempDir(), "does", "not", "exist", "yet")

	_, err := sut.Download(context.Background(), "file.bin", destDir)
	assert.NoError(t, err, "download should create the destination directory")

	info, err := os.Stat(destDir)
	assert.NoError(t, err, "destination directory should exist")
	assert.True(t, info.IsDir(), "destination should be a directory")
}

func TestDownloadOverwritesOnRerun(t *testing.T) {
	destDir := t.TempDir()

	downloader := &mockedAWSS3Downloader{content: []byte("first version")}
	sut := testBucket(downloader, &mockedAWSS3Putter{}, "")
	_, err := sut.Download(context.Background(), "inbox/report.csv", destDir)
	assert.NoError(t, err, "first download should succeed")

	downloader.content = []byte("v2")
	localPath, err := sut.Download(context.Background(), "inbox/report.csv", destDir)
	assert.NoError(t, err, "second download should succeed")

	content, err := os.ReadFile(localPath)
	assert.NoError(t, err, "should read the downloaded file")
	assert.Equal(t, "v2", string(content), "rerun should deterministically overwrite")
}

func TestDownloadUsesTheFixedPrefix(t *testing.T) {
	downloader := &mockedAWSS3Downloader{content: []byte("x")}
	sut := testBucket(downloader, &mockedAWSS3Putter{}, "landing/")

	_, err := sut.Download(context.Background(), "/inbox/report.csv", t.TempDir())
	assert.NoError(t, err, "download should succeed")
	assert.Equal(t, "landing/inbox/report.csv", aws.ToString(downloader.calledWith[0].Key),
		"key should be merged with the fixed prefix")
}

func TestDownloadReturnsErrorAndLeavesNoPartialFile(t *testing.T) {
	downloader := &mockedAWSS3Downloader{err: errors.New("connection reset")}
	sut := testBucket(downloader, &mockedAWSS3Putter{}, "")
	destDir := t.TempDir()

	_, err := sut.Download(context.Background(), "inbox/report.csv", destDir)
	assert.Error(t, err, "download should propagate the failure")

	_, statErr := os.Stat(filepath.Join(destDir, "report.csv"))
	assert.True(t, os.IsNotExist(statErr), "no partial file should be left behind")
}

func TestUpload(t *testing.T) {
	putter := &mockedAWSS3Putter{}
	sut := testBucket(&mockedAWSS3Downloader{}, putter, "")

	err := sut.Upload(context.Background(), "logs/pescador/run.log", strings.NewReader("log lines"))
	assert.NoError(t, err, "upload should succeed")

	assert.Equal(t, "some-bucket", aws.ToString(putter.calledWith[0].Bucket), "bucket doesn't match")
	assert.Equal(t, "logs/pescador/run.log", aws.ToString(putter.calledWith[0].Key), "key doesn't match")
	assert.Equal(t, "log lines", string(putter.bodies[0]), "body doesn't match")
}

func TestUploadPropagatesErrors(t *testing.T) {
	putter := &mockedAWSS3Putter{err: errors.New("access denied")}
	sut := testBucket(&mockedAWSS3Downloader{}, putter, "")

	err := sut.Upload(context.Background(), "logs/pescador/run.log", strings.NewReader("x"))
	assert.Error(t, err, "upload should propagate the failure")
}

func TestPrefixMergerDoesNotDuplicateSeparators(t *testing.T) {
	type testCase struct {
		fixedPrefix string
		key         string
		expected    string
	}

	testCases := []testCase{
		{"", "something", "something"},
		{"", "/something/", "something"},
		{"abc", "something", "abc/something"},
		{"/abc/", "/something", "abc/something"},
		{"abc/", "something", "abc/something"},
		{"abc", "def/something", "abc/def/something"},
		{"/abc/", "def/something/", "abc/def/something"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, mergeParts(tc.fixedPrefix, tc.key),
			"prefix merge result doesn't match for %q + %q", tc.fixedPrefix, tc.key)
	}
}

