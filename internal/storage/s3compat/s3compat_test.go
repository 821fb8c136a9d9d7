package s3compat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"not found", fmt.Errorf("head: %w", &types.NotFound{}), true},
		{"generic code", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

func TestNewDefaults(t *testing.T) {
	c, err := New(context.Background(), Opts{
		Bucket:    "chat",
		Region:    "us-west-002",
		Endpoint:  "https://s3.us-west-002.backblazeb2.com",
		AccessKey: "id",
		SecretKey: "secret",
		PathStyle: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(16), c.partSizeMB)
	assert.Equal(t, 4, c.concurrency)
	assert.Equal(t, "chat", c.bucket)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Opts{Region: "us-east-1"})
	assert.Error(t, err)
}
