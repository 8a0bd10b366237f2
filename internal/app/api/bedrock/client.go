package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"clipscout/internal/app/api/awsutil"
	"clipscout/internal/app/api/provider"
	"clipscout/internal/config"
)

// ProviderName is the variant name shared by every Bedrock capability
const ProviderName = config.ProviderBedrock

// RuntimeAPI is the subset of the Bedrock runtime client used here
type RuntimeAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Option customizes a Bedrock provider
type Option func(*base)

// WithRuntimeAPI injects a preconfigured runtime client and skips AWS config loading
func WithRuntimeAPI(api RuntimeAPI) Option {
	return func(b *base) { b.client = api }
}

type base struct {
	provider.Readiness
	settings *config.Settings
	logger   *zap.Logger
	client   RuntimeAPI
}

func newBase(s *config.Settings, logger *zap.Logger, opts []Option) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := base{settings: s, logger: logger.With(zap.String("provider", ProviderName))}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Name returns the variant name
func (b *base) Name() string { return ProviderName }

// Initialize resolves AWS credentials and creates the runtime client
func (b *base) Initialize(ctx context.Context) error {
	if b.client == nil {
		cfg, _, err := awsutil.LoadVerifiedConfig(ctx, b.settings)
		if err != nil {
			return err
		}
		b.client = bedrockruntime.NewFromConfig(cfg)
	}
	b.MarkReady()
	b.logger.Debug("bedrock runtime ready", zap.String("region", b.settings.AWSRegion))
	return nil
}

func (b *base) ensureReady() error {
	if !b.IsAvailable() {
		return &provider.ProviderUnavailableError{Provider: ProviderName, Reason: "not initialized"}
	}
	return nil
}
