package awsutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"clipscout/internal/config"
)

// LoadConfig resolves an AWS config for the configured region. Static keys in
// settings take precedence over the SDK default credential chain.
func LoadConfig(ctx context.Context, s *config.Settings) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s.AWSRegion),
	}
	if s.AWSAccessKeyID != "" && s.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AWSAccessKeyID, s.AWSSecretAccessKey, s.AWSSessionToken),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// LoadVerifiedConfig loads the config and fails when no credentials resolve
func LoadVerifiedConfig(ctx context.Context, s *config.Settings) (aws.Config, aws.Credentials, error) {
	cfg, err := LoadConfig(ctx, s)
	if err != nil {
		return aws.Config{}, aws.Credentials{}, err
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return aws.Config{}, aws.Credentials{}, fmt.Errorf("failed to resolve AWS credentials: %w", err)
	}
	return cfg, creds, nil
}
