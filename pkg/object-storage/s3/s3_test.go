package s3

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_ObjectKey(t *testing.T) {
	assert.Equal(t, "journals/u1/j1.md", ObjectKey("/journals/u1", "j1.md"))
	assert.Equal(t, "j1.md", ObjectKey("", "j1.md"))
}

func newTestClient(t *testing.T) *S3 {
	endpoint := os.Getenv("TEST_OTTERLY_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_OTTERLY_S3_ENDPOINT is empty")
	}
	return NewS3Client(endpoint, os.Getenv("TEST_OTTERLY_S3_REGION"), os.Getenv("TEST_OTTERLY_S3_BUCKET"), os.Getenv("TEST_OTTERLY_S3_ACCESS_KEY"), os.Getenv("TEST_OTTERLY_S3_SECRET_KEY"))
}

func Test_UploadAndPresign(t *testing.T) {
	s := newTestClient(t)
	ctx := context.Background()

	if err := s.Upload(ctx, "test", "export.md", "text/markdown", bytes.NewReader([]byte("# hello"))); err != nil {
		t.Fatal(err)
	}

	url, err := s.GenGetObjectPreSignURL(ctx, ObjectKey("test", "export.md"), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	t.Log(url)

	assert.NoError(t, s.Delete(ctx, ObjectKey("test", "export.md")))
}
