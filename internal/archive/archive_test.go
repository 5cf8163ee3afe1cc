package archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/newsfeed/internal/models"
)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestMirrorUploadsLatest(t *testing.T) {
	putter := &fakePutter{}
	a := NewWithClient(putter, "news", "/snapshots/")

	records := []models.ArticleEntity{{Headline: models.String("A")}}
	require.NoError(t, a.Mirror(context.Background(), records))

	require.Len(t, putter.inputs, 1)
	assert.Equal(t, "news", aws.ToString(putter.inputs[0].Bucket))
	assert.Equal(t, "snapshots/articles/latest.json", aws.ToString(putter.inputs[0].Key))
	assert.Equal(t, "application/json", aws.ToString(putter.inputs[0].ContentType))
	assert.Contains(t, putter.bodies[0], `"headline": "A"`)
}

func TestMirrorSkipsIdenticalSets(t *testing.T) {
	putter := &fakePutter{}
	a := NewWithClient(putter, "news", "")
	ctx := context.Background()

	records := []models.ArticleEntity{{Headline: models.String("A")}}
	require.NoError(t, a.Mirror(ctx, records))
	require.NoError(t, a.Mirror(ctx, records))
	require.NoError(t, a.Mirror(ctx, nil))

	assert.Len(t, putter.inputs, 2)
	assert.Equal(t, "articles/latest.json", a.Key())
	assert.Equal(t, "[]", putter.bodies[1])
}

func TestMirrorFailureIsRetriedNextTime(t *testing.T) {
	putter := &fakePutter{err: errors.New("denied")}
	a := NewWithClient(putter, "news", "")
	records := []models.ArticleEntity{{Headline: models.String("A")}}

	assert.Error(t, a.Mirror(context.Background(), records))

	putter.err = nil
	require.NoError(t, a.Mirror(context.Background(), records))
	assert.Len(t, putter.inputs, 1)
}
