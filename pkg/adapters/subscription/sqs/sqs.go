package sqs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsSqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jademcosta/pescador/pkg/domain"
	"github.com/jademcosta/pescador/pkg/logger"
	"gopkg.in/yaml.v2"
)

const TYPE string = "sqs"
const startupTimeout = 20 * time.Second
const ackTimeout = 10 * time.Second
const maxWaitTimeSeconds int32 = 20
const maxMessagesPerReceive int32 = 10

type sqsReceiveAPI interface {
	ReceiveMessage(context.Context, *awsSqs.ReceiveMessageInput,
		...func(*awsSqs.Options)) (*awsSqs.ReceiveMessageOutput, error)
	DeleteMessage(context.Context, *awsSqs.DeleteMessageInput,
		...func(*awsSqs.Options)) (*awsSqs.DeleteMessageOutput, error)
}

type Config struct {
	URL             string `yaml:"url"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	CredentialsFile string `yaml:"credentials_file"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
}

// Subscription long-polls an SQS queue. Acking a notification deletes its
// receipt handle; messages never acked fall back to the queue on their own
// visibility timeout, which is the broker's redelivery policy at work.
type Subscription struct {
	log      *slog.Logger
	client   sqsReceiveAPI
	queueURL string

	// buffer holds messages of the last receive batch. Next is only called
	// from the single intake loop, so no locking around it.
	buffer []*domain.Notification
}

func New(l *slog.Logger, c *Config) (*Subscription, error) {
	if !validURL(c.URL) {
		return nil, fmt.Errorf("invalid url for SQS %s", c.URL)
	}

	ctx, cancelFunc := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelFunc()

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.Region),
		awsconfig.WithBaseEndpoint(c.Endpoint),
	}

	if c.CredentialsFile != "" {
		opts = append(opts, awsconfig.WithSharedCredentialsFiles([]string{c.CredentialsFile}))
	}

	if c.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("couldn't load default AWS configuration: %w", err)
	}

	return &Subscription{
		log:      l.With(logger.SubscriptionTypeKey, TYPE),
		client:   awsSqs.NewFromConfig(sdkConfig),
		queueURL: c.URL,
	}, nil
}

func ParseConfig(confData []byte) (*Config, error) {
	conf := &Config{}

	err := yaml.Unmarshal(confData, conf)
	if err != nil {
		return conf, fmt.Errorf("error parsing SQS config: %w", err)
	}

	return conf, nil
}

func (sub *Subscription) Next(ctx context.Context) (*domain.Notification, error) {
	for len(sub.buffer) == 0 {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		output, err := sub.client.ReceiveMessage(ctx, &awsSqs.ReceiveMessageInput{
			QueueUrl:            &sub.queueURL,
			MaxNumberOfMessages: maxMessagesPerReceive,
			WaitTimeSeconds:     waitTimeFor(ctx),
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("error receiving from SQS: %w", err)
		}

		for _, message := range output.Messages {
			sub.buffer = append(sub.buffer, sub.toNotification(
				aws.ToString(message.MessageId),
				aws.ToString(message.Body),
				message.ReceiptHandle,
			))
		}
	}

	notification := sub.buffer[0]
	sub.buffer = sub.buffer[1:]
	return notification, nil
}

func (sub *Subscription) Type() string {
	return TYPE
}

func (sub *Subscription) Name() string {
	return sub.queueURL
}

func (sub *Subscription) toNotification(id string, body string, receiptHandle *string) *domain.Notification {
	return &domain.Notification{
		ID:      id,
		Payload: []byte(body),
		// The ack runs on its own context so handlers draining after the
		// listening window deadline can still delete their message.
		Ack: func() {
			ctx, cancelFunc := context.WithTimeout(context.Background(), ackTimeout)
			defer cancelFunc()

			_, err := sub.client.DeleteMessage(ctx, &awsSqs.DeleteMessageInput{
				QueueUrl:      &sub.queueURL,
				ReceiptHandle: receiptHandle,
			})
			if err != nil {
				sub.log.Error("failed to ack notification", "message_id", id, "error", err)
			}
		},
	}
}

// waitTimeFor bounds the long poll by the remaining listening window, so a
// receive never outlives the window by a full poll cycle.
func waitTimeFor(ctx context.Context) int32 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return maxWaitTimeSeconds
	}

	remaining := int32(time.Until(deadline).Seconds())
	if remaining < 1 {
		return 1
	}
	if remaining > maxWaitTimeSeconds {
		return maxWaitTimeSeconds
	}
	return remaining
}

func validURL(url string) bool {
	return len(url) > 0
}
