package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAWSConfig_LocalStack(t *testing.T) {
	t.Setenv("AWS_REGION", "ap-northeast-2")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test-secret")
	t.Setenv("AWS_SESSION_TOKEN", "")
	t.Setenv("AWS_ENDPOINT", "")
	t.Setenv("AWS_S3_ENDPOINT", "http://localhost:4566")

	cfg, err := LoadAWSConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ap-northeast-2", cfg.Region)
	require.NotNil(t, cfg.BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", *cfg.BaseEndpoint)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
	assert.Equal(t, "test-secret", creds.SecretAccessKey)
	assert.Equal(t, credentials.StaticCredentialsName, creds.Source)
}

func TestEndpointOverride_Precedence(t *testing.T) {
	t.Setenv("AWS_ENDPOINT", "")
	t.Setenv("AWS_S3_ENDPOINT", "")
	t.Setenv("AWS_SQS_ENDPOINT", "http://sqs.local:4566")
	assert.Equal(t, "http://sqs.local:4566", EndpointOverride())

	t.Setenv("AWS_ENDPOINT", "http://localstack:4566")
	assert.Equal(t, "http://localstack:4566", EndpointOverride())
}
