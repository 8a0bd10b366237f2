package awsutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipscout/internal/config"
)

func TestLoadVerifiedConfigWithStaticKeys(t *testing.T) {
	s := config.Defaults()
	s.AWSRegion = "eu-west-1"
	s.AWSAccessKeyID = "AKIDEXAMPLE"
	s.AWSSecretAccessKey = "secret"

	cfg, creds, err := LoadVerifiedConfig(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}
