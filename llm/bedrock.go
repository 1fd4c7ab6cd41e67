package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	// DefaultBedrockModel is the default model to use.
	DefaultBedrockModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	// DefaultBedrockMaxTokens is the default max tokens.
	DefaultBedrockMaxTokens = 1024
)

// BedrockLLM implements the LLM interface for AWS Bedrock via the Converse API.
type BedrockLLM struct {
	client      *bedrockruntime.Client
	model       string
	maxTokens   int
	temperature float32
	topP        float32
	region      string
	logger      *slog.Logger
}

// BedrockOption configures a BedrockLLM.
type BedrockOption func(*BedrockLLM)

// WithBedrockModel sets the model ID.
func WithBedrockModel(model string) BedrockOption {
	return func(b *BedrockLLM) {
		b.model = model
	}
}

// WithBedrockMaxTokens sets the max tokens.
func WithBedrockMaxTokens(maxTokens int) BedrockOption {
	return func(b *BedrockLLM) {
		b.maxTokens = maxTokens
	}
}

// WithBedrockRegion sets the AWS region.
func WithBedrockRegion(region string) BedrockOption {
	return func(b *BedrockLLM) {
		b.region = region
	}
}

// WithBedrockCredentials sets explicit AWS credentials.
func WithBedrockCredentials(accessKeyID, secretAccessKey, sessionToken string) BedrockOption {
	return func(b *BedrockLLM) {
		cfg, err := config.LoadDefaultConfig(context.Background(),
			config.WithRegion(b.region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				accessKeyID,
				secretAccessKey,
				sessionToken,
			)),
		)
		if err == nil {
			b.client = bedrockruntime.NewFromConfig(cfg)
		}
	}
}

// WithBedrockClient sets a custom Bedrock client (for testing).
func WithBedrockClient(client *bedrockruntime.Client) BedrockOption {
	return func(b *BedrockLLM) {
		b.client = client
	}
}

// NewBedrockLLM creates a new AWS Bedrock LLM client.
func NewBedrockLLM(opts ...BedrockOption) *BedrockLLM {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = os.Getenv("AWS_DEFAULT_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	b := &BedrockLLM{
		model:       DefaultBedrockModel,
		maxTokens:   DefaultBedrockMaxTokens,
		temperature: 0.1,
		topP:        1.0,
		region:      region,
		logger:      slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	// Apply options first to get region
	for _, opt := range opts {
		opt(b)
	}

	// Initialize client if not already set
	if b.client == nil {
		cfg, err := config.LoadDefaultConfig(context.Background(),
			config.WithRegion(b.region),
		)
		if err == nil {
			b.client = bedrockruntime.NewFromConfig(cfg)
		}
	}

	return b
}

// Complete generates a completion for a given prompt.
func (b *BedrockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return b.Chat(ctx, []ChatMessage{NewUserMessage(prompt)})
}

// Chat generates a response for a list of chat messages.
func (b *BedrockLLM) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	b.logger.Info("Chat called", "model", b.model, "message_count", len(messages))

	converseMessages, systemPrompts := b.convertMessages(messages)

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(b.model),
		Messages: converseMessages,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(b.maxTokens)),
			Temperature: aws.Float32(b.temperature),
			TopP:        aws.Float32(b.topP),
		},
	}

	if len(systemPrompts) > 0 {
		input.System = systemPrompts
	}

	resp, err := b.client.Converse(ctx, input)
	if err != nil {
		b.logger.Error("Chat failed", "error", err)
		return "", fmt.Errorf("bedrock converse failed: %w", err)
	}

	return extractTextFromConverse(resp), nil
}

// StreamChat generates a streaming response for chat messages.
func (b *BedrockLLM) StreamChat(ctx context.Context, messages []ChatMessage) (*ChatStream, error) {
	b.logger.Info("StreamChat called", "model", b.model, "message_count", len(messages))

	converseMessages, systemPrompts := b.convertMessages(messages)

	input := &bedrockruntime.ConverseStreamInput{
		ModelId:  aws.String(b.model),
		Messages: converseMessages,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(b.maxTokens)),
			Temperature: aws.Float32(b.temperature),
			TopP:        aws.Float32(b.topP),
		},
	}

	if len(systemPrompts) > 0 {
		input.System = systemPrompts
	}

	resp, err := b.client.ConverseStream(ctx, input)
	if err != nil {
		b.logger.Error("StreamChat failed", "error", err)
		return nil, fmt.Errorf("bedrock stream failed: %w", err)
	}

	tokenChan := make(chan string)
	result := &ChatStream{Tokens: tokenChan}

	go func() {
		defer close(tokenChan)

		stream := resp.GetStream()
		defer stream.Close()
		for event := range stream.Events() {
			switch v := event.(type) {
			case *types.ConverseStreamOutputMemberContentBlockDelta:
				if textDelta, ok := v.Value.Delta.(*types.ContentBlockDeltaMemberText); ok {
					select {
					case tokenChan <- textDelta.Value:
					case <-ctx.Done():
						result.err = ctx.Err()
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			b.logger.Error("bedrock stream failed", "error", err)
			result.err = fmt.Errorf("bedrock stream failed: %w", err)
		}
	}()

	return result, nil
}

func (b *BedrockLLM) convertMessages(messages []ChatMessage) ([]types.Message, []types.SystemContentBlock) {
	var converseMessages []types.Message
	var systemPrompts []types.SystemContentBlock

	for _, msg := range messages {
		switch msg.Role {
		case MessageRoleSystem:
			systemPrompts = append(systemPrompts, &types.SystemContentBlockMemberText{
				Value: msg.Content,
			})

		case MessageRoleUser:
			converseMessages = append(converseMessages, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: msg.Content},
				},
			})

		case MessageRoleAssistant:
			converseMessages = append(converseMessages, types.Message{
				Role: types.ConversationRoleAssistant,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: msg.Content},
				},
			})
		}
	}

	return converseMessages, systemPrompts
}

func extractTextFromConverse(resp *bedrockruntime.ConverseOutput) string {
	output, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}

	var text string
	for _, block := range output.Value.Content {
		if textBlock, ok := block.(*types.ContentBlockMemberText); ok {
			text += textBlock.Value
		}
	}
	return text
}

// Ensure BedrockLLM implements the interface.
var _ LLM = (*BedrockLLM)(nil)
