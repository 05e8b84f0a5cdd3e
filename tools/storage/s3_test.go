package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	err     error
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3PantryState(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{objects: map[string][]byte{
		"artifacts/pantry.json": []byte(`{"ingredients": []}`),
	}}
	state := NewS3PantryState(client, "artifacts", "pantry.json")

	data, err := state.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"ingredients": []}`, string(data))

	require.NoError(t, state.Save(ctx, []byte(`{"ingredients": [{"name": "egg"}]}`)))
	data, err = state.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), "egg")

	_, err = NewS3PantryState(client, "artifacts", "missing.json").Load(ctx)
	assert.ErrorContains(t, err, "failed to get pantry object from S3")

	client.err = errors.New("access denied")
	assert.ErrorContains(t, state.Save(ctx, nil), "failed to put pantry object to S3")
}

func TestS3RecipeState(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{
		"artifacts/recipes.json": []byte(`{"recipes": []}`),
	}}
	data, err := NewS3RecipeState(client, "artifacts", "recipes.json").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"recipes": []}`, string(data))
}
