package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"utgifter/internal/log"
)

const (
	DefaultModel   = "mistral"
	DefaultTimeout = 5 * time.Second

	maxResponseBytes = 1 << 20
)

var errEmptyAnswer = errors.New("empty answer")

// OllamaConfig configures the Ollama generate client.
type OllamaConfig struct {
	// BaseURL is the inference host, e.g. http://localhost:11434/.
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Fallback string
	Labels   LabelSource
	// HTTPClient defaults to a client with Timeout applied.
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Ollama classifies descriptions with a single non-streaming call to an
// Ollama server's api/generate endpoint.
type Ollama struct {
	endpoint   string
	model      string
	timeout    time.Duration
	fallback   string
	labels     LabelSource
	httpClient *http.Client
	logger     *log.Logger
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("inference base URL is required")
	}
	endpoint, err := url.JoinPath(cfg.BaseURL, "api", "generate")
	if err != nil {
		return nil, fmt.Errorf("invalid inference base URL %q: %w", cfg.BaseURL, err)
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(cfg.Fallback) == "" {
		cfg.Fallback = DefaultFallback
	}
	if cfg.Labels == nil {
		cfg.Labels = StaticLabels(DefaultLabels)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}

	return &Ollama{
		endpoint:   endpoint,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		fallback:   strings.TrimSpace(cfg.Fallback),
		labels:     cfg.Labels,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger.WithComponent(log.ComponentClassifier),
	}, nil
}

// Fallback is the label returned whenever inference fails.
func (o *Ollama) Fallback() string {
	return o.fallback
}

// Classify returns the label the model picked for description, or the
// fallback label if the model could not be reached or gave no answer.
func (o *Ollama) Classify(ctx context.Context, description string) string {
	start := time.Now()
	label, err := o.classify(ctx, description)
	classificationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		classificationsTotal.WithLabelValues(outcomeFallback).Inc()
		o.logger.WarnContext(ctx, "Classification failed, using fallback label",
			log.FieldExpenseDesc, description,
			log.FieldLabel, o.fallback,
			log.FieldError, err.Error(),
			"error_type", errorType(err))
		return o.fallback
	}

	classificationsTotal.WithLabelValues(outcomeOK).Inc()
	o.logger.DebugContext(ctx, "Expense classified",
		log.FieldExpenseDesc, description,
		log.FieldLabel, label)
	return label
}

func (o *Ollama) classify(ctx context.Context, description string) (string, error) {
	labels, err := o.labels.Labels(ctx)
	if err != nil {
		return "", fmt.Errorf("load labels: %w", err)
	}
	labels = withFallback(labels, o.fallback)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:  o.model,
		Prompt: BuildPrompt(description, labels),
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("inference error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	label := NormalizeAnswer(out.Response, labels)
	if label == "" {
		return "", errEmptyAnswer
	}
	return label, nil
}

func errorType(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return log.ErrorTypeTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return log.ErrorTypeTimeout
		}
		return log.ErrorTypeNetwork
	}
	return log.ErrorTypeInternal
}
