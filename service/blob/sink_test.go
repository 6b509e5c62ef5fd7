package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/brojonat/swapexport/service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_Put(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	sink := NewFileSink(dir)

	loc, err := sink.Put(context.Background(), "export.csv", "text/csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "export.csv"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestFileSink_RejectsPaths(t *testing.T) {
	sink := NewFileSink(t.TempDir())
	for _, name := range []string{"", "../escape.csv", "sub/dir.csv"} {
		_, err := sink.Put(context.Background(), name, "text/csv", nil)
		assert.Error(t, err, name)
	}
}

func TestFileSink_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileSink(t.TempDir()).Put(ctx, "x.csv", "text/csv", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Sink_Put(t *testing.T) {
	fake := &fakeS3{}
	sink := newS3Sink(fake, "bucket", "exports/2024")

	loc, err := sink.Put(context.Background(), "export.csv", "text/csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/exports/2024/export.csv", loc)
	assert.Equal(t, "bucket", *fake.in.Bucket)
	assert.Equal(t, "exports/2024/export.csv", *fake.in.Key)
	assert.Equal(t, "text/csv", *fake.in.ContentType)
	assert.Equal(t, int64(4), *fake.in.ContentLength)
	assert.Equal(t, "a,b\n", string(fake.body))
}

func TestS3Sink_PutError(t *testing.T) {
	sink := newS3Sink(&fakeS3{err: errors.New("denied")}, "bucket", "")
	_, err := sink.Put(context.Background(), "export.csv", "text/csv", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://bucket/export.csv")
}

func TestNewS3Sink_RequiresBucketAndRegion(t *testing.T) {
	_, err := NewS3Sink(context.Background(), config.S3Config{Region: "us-east-1"})
	assert.Error(t, err)
	_, err = NewS3Sink(context.Background(), config.S3Config{Bucket: "b"})
	assert.Error(t, err)
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://minio.local:9000", normaliseEndpoint("minio.local:9000"))
	assert.Equal(t, "http://minio.local:9000", normaliseEndpoint("http://minio.local:9000"))
}
