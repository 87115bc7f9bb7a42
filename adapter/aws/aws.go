// Package aws provides the AWS SNS/SQS cloud-queue adapter. Publishing goes
// to an SNS topic; consumption drains an SQS queue subscribed to it. The
// destination is resolved either from a configured topic ARN or from the
// topic name through an account/region ARN generator.
package aws

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	amazonsns "github.com/aws/aws-sdk-go-v2/service/sns"
	amazonsqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	smithyendpoints "github.com/aws/smithy-go/endpoints"

	"github.com/portabus/portabus/adapter"
)

// TransportName is the name used to register this adapter.
const TransportName = "aws"

const (
	localstackAccountID = "000000000000"
	awsAccountIDLength  = 12
	arnSeparator        = ":"
)

// DefaultConfigLoader allows overriding the AWS config loader for testing.
var DefaultConfigLoader = awsconfig.LoadDefaultConfig

// TopicResolverFactory allows overriding the topic resolver creation for testing.
var TopicResolverFactory = sns.NewGenerateArnTopicResolver

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return sns.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg sns.SubscriberConfig, sqsCfg sqs.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return sns.NewSubscriber(cfg, sqsCfg, logger)
}

func init() {
	Register()
}

// Register registers the AWS adapter with the default registry.
func Register() {
	adapter.Register(TransportName, adapter.Registration{
		Builder:      Build,
		Probe:        Probe,
		Capabilities: adapter.AWSCapabilities,
	})
}

// Build creates a new AWS SNS/SQS adapter.
func Build(ctx context.Context, cfg adapter.Config, logger watermill.LoggerAdapter) (adapter.Adapter, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg, logger)
	if err != nil {
		return adapter.Adapter{}, err
	}

	publisher, err := buildPublisher(cfg, logger, awsCfg)
	if err != nil {
		return adapter.Adapter{}, err
	}

	subscriber, err := buildSubscriber(cfg, logger, awsCfg)
	if err != nil {
		return adapter.Adapter{}, err
	}

	return adapter.Adapter{
		Name:       TransportName,
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

// Probe reports whether the SNS/SQS client can be configured: a region (or
// custom endpoint for LocalStack) must be present.
func Probe(ctx context.Context, cfg adapter.Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.GetAWSRegion() != "" || cfg.GetAWSEndpoint() != ""
}

// Capabilities returns the capabilities of this adapter.
func Capabilities() adapter.Capabilities {
	return adapter.AWSCapabilities
}

func loadAWSConfig(ctx context.Context, cfg adapter.Config, logger watermill.LoggerAdapter) (*awssdk.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error

	region := cfg.GetAWSRegion()
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if cfg.GetAWSAccessKeyID() != "" && cfg.GetAWSSecretAccessKey() != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			staticCredentials(cfg.GetAWSAccessKeyID(), cfg.GetAWSSecretAccessKey())))
	}

	awsCfg, err := DefaultConfigLoader(ctx, opts...)
	if err != nil {
		logger.Error("Failed to load AWS config", err, watermill.LogFields{"region": region})
		return nil, err
	}

	// The loader may ignore options when a profile pins the region.
	if region != "" {
		awsCfg.Region = region
	}

	return &awsCfg, nil
}

func buildPublisher(cfg adapter.Config, logger watermill.LoggerAdapter, awsCfg *awssdk.Config) (message.Publisher, error) {
	topicResolver, err := newTopicResolver(cfg, logger, awsCfg.Region)
	if err != nil {
		return nil, err
	}

	publisherConfig := sns.PublisherConfig{
		TopicResolver: topicResolver,
		AWSConfig:     *awsCfg,
		Marshaler:     sns.DefaultMarshalerUnmarshaler{},
	}

	if endpoint := cfg.GetAWSEndpoint(); endpoint != "" {
		publisherConfig.OptFns = []func(*amazonsns.Options){
			func(o *amazonsns.Options) {
				o.BaseEndpoint = awssdk.String(endpoint)
			},
		}
	}

	return PublisherFactory(publisherConfig, logger)
}

func buildSubscriber(cfg adapter.Config, logger watermill.LoggerAdapter, awsCfg *awssdk.Config) (message.Subscriber, error) {
	topicResolver, err := newTopicResolver(cfg, logger, awsCfg.Region)
	if err != nil {
		return nil, err
	}

	snsOpts, sqsOpts, err := endpointOverrides(cfg)
	if err != nil {
		return nil, err
	}

	subscriberConfig := sns.SubscriberConfig{
		AWSConfig:            *awsCfg,
		OptFns:               snsOpts,
		TopicResolver:        topicResolver,
		GenerateSqsQueueName: queueNameFromTopic,
	}

	return SubscriberFactory(
		subscriberConfig,
		sqs.SubscriberConfig{
			AWSConfig: *awsCfg,
			OptFns:    sqsOpts,
		},
		logger,
	)
}

// queueNameFromTopic names the SQS queue after the SNS topic it drains.
func queueNameFromTopic(ctx context.Context, snsTopic sns.TopicArn) (string, error) {
	topic, err := sns.ExtractTopicNameFromTopicArn(snsTopic)
	if err != nil {
		return "", err
	}
	return string(topic), nil
}

// newTopicResolver builds an ARN resolver. A configured topic ARN pins the
// account and region directly; otherwise they come from config, with the
// LocalStack default account when a custom endpoint is in play.
func newTopicResolver(cfg adapter.Config, logger watermill.LoggerAdapter, fallbackRegion string) (sns.TopicResolver, error) {
	accountID, region := resolveAccountAndRegion(cfg, logger, fallbackRegion)

	if arn := cfg.GetAWSTopicARN(); arn != "" {
		arnAccount, arnRegion, err := parseTopicARN(arn)
		if err != nil {
			return nil, err
		}
		accountID, region = arnAccount, arnRegion
	}

	resolver, err := TopicResolverFactory(accountID, region)
	if err != nil {
		logger.Error("Failed to create SNS topic resolver", err, watermill.LogFields{
			"accountID": accountID,
			"region":    region,
		})
		return nil, err
	}
	return resolver, nil
}

// parseTopicARN extracts account and region from an ARN like
// arn:aws:sns:<region>:<account>:<name>, validating the name part.
func parseTopicARN(arn string) (accountID, region string, err error) {
	if _, err := sns.ExtractTopicNameFromTopicArn(sns.TopicArn(arn)); err != nil {
		return "", "", fmt.Errorf("invalid topic ARN %q: %w", arn, err)
	}
	parts := strings.Split(arn, arnSeparator)
	if len(parts) < 6 {
		return "", "", fmt.Errorf("invalid topic ARN %q", arn)
	}
	return parts[4], parts[3], nil
}

func resolveAccountAndRegion(cfg adapter.Config, logger watermill.LoggerAdapter, fallbackRegion string) (string, string) {
	accountID := strings.Trim(cfg.GetAWSAccountID(), "\"' ")
	region := cfg.GetAWSRegion()
	if region == "" {
		region = fallbackRegion
	}

	usingLocalstack := cfg.GetAWSEndpoint() != ""
	if usingLocalstack && (accountID == "" || len(accountID) != awsAccountIDLength) {
		logger.Info("Using LocalStack default account ID", watermill.LogFields{"configured": accountID})
		accountID = localstackAccountID
	}

	return accountID, region
}

func endpointOverrides(cfg adapter.Config) ([]func(*amazonsns.Options), []func(*amazonsqs.Options), error) {
	endpoint := cfg.GetAWSEndpoint()
	if endpoint == "" {
		return nil, nil, nil
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse AWS endpoint %q: %w", endpoint, err)
	}

	snsOpts := []func(*amazonsns.Options){
		amazonsns.WithEndpointResolverV2(sns.OverrideEndpointResolver{
			Endpoint: smithyendpoints.Endpoint{URI: *parsed},
		}),
	}
	sqsOpts := []func(*amazonsqs.Options){
		amazonsqs.WithEndpointResolverV2(sqs.OverrideEndpointResolver{
			Endpoint: smithyendpoints.Endpoint{URI: *parsed},
		}),
	}
	return snsOpts, sqsOpts, nil
}

func staticCredentials(accessKeyID, secretAccessKey string) awssdk.CredentialsProvider {
	return awssdk.CredentialsProviderFunc(func(ctx context.Context) (awssdk.Credentials, error) {
		return awssdk.Credentials{
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
		}, nil
	})
}
