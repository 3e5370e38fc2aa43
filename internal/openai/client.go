package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is the model used for sentiment scoring
	DefaultChatModel = openai.GPT4oMini
	// DefaultRequestsPerMinute caps outbound API calls client-side
	DefaultRequestsPerMinute = 60
)

var (
	// ErrEmptyText is returned when a text in the batch is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// API defines the OpenAI calls the client depends on
type API interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	CreateChatCompletion(ctx context.Context, system, user string) (string, error)
}

// Client wraps the OpenAI API with batch embedding and sentiment scoring
type Client struct {
	api        API
	model      string
	dimensions int
}

type OpenAIAdapter struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	chatModel string
	limiter   *rate.Limiter
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel, chatModel string, rpm int) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	return &OpenAIAdapter{
		client:    openai.NewClient(apiKey),
		model:     model,
		chatModel: chatModel,
		limiter:   rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}
}

// CreateEmbeddings calls the OpenAI API for a whole batch. Results are
// reordered by the response index, so vectors line up with their inputs.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	data := append([]openai.Embedding(nil), resp.Data...)
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// CreateChatCompletion sends one system+user exchange and returns the reply text
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, system, user string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
	RequestsPerMinute   int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Client{
		api:        NewOpenAIAdapter(cfg.APIKey, model, cfg.ChatModel, cfg.RequestsPerMinute),
		model:      string(model),
		dimensions: dimensions,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// Dimension returns the expected embedding width
func (c *Client) Dimension() int { return c.dimensions }

// ModelName identifies the embedding model in stored metadata
func (c *Client) ModelName() string { return c.model }

// Embed generates embeddings for a batch of texts. vectors[i] belongs to
// texts[i]; empty texts are rejected before any API call.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("text %d: %w", i, ErrEmptyText)
		}
	}

	vectors, err := c.api.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != c.dimensions {
			return nil, fmt.Errorf("embedding %d has %d dimensions, expected %d: %w",
				i, len(v), c.dimensions, ErrWrongDimensions)
		}
	}
	return vectors, nil
}

const sentimentSystemPrompt = "You score the sentiment of financial text. " +
	"Reply with a single number between -1.0 (very negative) and 1.0 (very positive). " +
	"Reply with the number only."

var floatPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ScoreSentiment asks the chat model for a sentiment score in [-1, 1].
// Out-of-range replies are clamped; replies with no number are an error.
func (c *Client) ScoreSentiment(ctx context.Context, text string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrEmptyText
	}

	reply, err := c.api.CreateChatCompletion(ctx, sentimentSystemPrompt, text)
	if err != nil {
		return 0, fmt.Errorf("failed to score sentiment: %w", err)
	}

	match := floatPattern.FindString(reply)
	if match == "" {
		return 0, fmt.Errorf("sentiment reply %q contains no score", reply)
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("sentiment reply %q: %w", reply, err)
	}
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return score, nil
}

// Annotate scores a batch of texts so the client satisfies the sentiment
// annotator contract.
func (c *Client) Annotate(ctx context.Context, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	for i, text := range texts {
		score, err := c.ScoreSentiment(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		scores[i] = score
	}
	return scores, nil
}
