package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/jobscout/jobscout/internal/resilience"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

type Model string

const (
	//Model15Flash is fastest multimodal model with great performance for diverse, repetitive tasks
	Model15Flash Model = "gemini-1.5-flash"
	//Model15Flash8b is the smallest model for lower intelligence use cases
	Model15Flash8b Model = "gemini-1.5-flash-8b"
	//Model15Pro is next-generation model with a breakthrough 2 million context window
	Model15Pro Model = "gemini-1.5-pro"
)

type Client struct {
	client            *genai.Client
	model             *genai.GenerativeModel
	modelName         Model
	minuteRateLimiter *rate.Limiter
	dayRateLimiter    *rate.Limiter
}

func NewClient(ctx context.Context, apiKey string, model Model) (*Client, error) {

	if apiKey == "" {
		return nil, resilience.Permanent(errors.New("missing AI api key"))
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &Client{
		client:    client,
		model:     client.GenerativeModel(string(model)),
		modelName: model,
	}, nil
}

func (c *Client) ModelName() string {
	return string(c.modelName)
}

func (c *Client) SetMinuteRateLimit(maxRequestsPerMinute float32) {
	c.minuteRateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerMinute/60), 1)
}

func (c *Client) SetDayRateLimit(maxRequestsPerDay float32) {
	c.dayRateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerDay/86400), int(maxRequestsPerDay))
}

// GenerateResponse sends one prompt and returns the text part of the
// response. Retrying is the caller's concern; errors come back classified
// so the retry policy and breaker can act on them.
func (c *Client) GenerateResponse(ctx context.Context, text string) (string, error) {

	limiters := []*rate.Limiter{c.minuteRateLimiter, c.dayRateLimiter}
	for _, limiter := range limiters {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
	}

	response, err := c.model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", classify(err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil ||
		len(response.Candidates[0].Content.Parts) == 0 {
		return "", resilience.Transient(errors.New("empty response from model"))
	}

	if textPart, ok := response.Candidates[0].Content.Parts[0].(genai.Text); ok {
		return string(textPart), nil
	}

	return "", resilience.Permanent(errors.New("response part is not text"))
}

func classify(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "Error 500") || strings.Contains(msg, "Error 503") ||
		strings.Contains(msg, "Error 429") || strings.Contains(msg, "deadline exceeded") {
		return resilience.Transient(err)
	}
	return resilience.Permanent(err)
}
