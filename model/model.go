package model

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// ============================================================================
// MODEL HANDLE — The only component that talks to the pretrained model
// ============================================================================
// The table-QA model runs behind an HTTP text-to-text inference endpoint.
// A Handle is built once per process (Load) and passed to the dispatcher.
// After Load it is read-only, so it is shared without locking.
//
// Wire contract (Hugging Face inference API, text2text-generation):
//   POST {endpoint}/{name}
//   {"inputs": "...", "parameters": {"max_length": N, "truncation": true},
//    "options": {"wait_for_model": true}}
//   → [{"generated_text": "..."}]  or  {"error": "..."}
// ============================================================================

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds the model endpoint settings.
type Config struct {
	Endpoint  string        `mapstructure:"endpoint"`   // base URL, model name is appended
	Name      string        `mapstructure:"name"`       // e.g. "microsoft/tapex-base-finetuned-wikisql"
	Token     string        `mapstructure:"token"`      // bearer token, empty = anonymous
	MaxLength int           `mapstructure:"max_length"` // input token budget
	Timeout   time.Duration `mapstructure:"timeout"`    // 0 = wait forever
}

// DefaultConfig returns the TAPEX WikiSQL model on the public inference API.
func DefaultConfig() Config {
	return Config{
		Endpoint:  "https://api-inference.huggingface.co/models",
		Name:      "microsoft/tapex-base-finetuned-wikisql",
		MaxLength: 512,
	}
}

// Handle is a loaded model. Safe for concurrent use.
type Handle struct {
	config Config
	url    string
	client *http.Client
}

// Load validates cfg and prepares the HTTP client. Missing fields take
// DefaultConfig values.
func Load(cfg Config) (*Handle, error) {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MaxLength == 0 {
		cfg.MaxLength = def.MaxLength
	}
	if cfg.MaxLength < 0 {
		return nil, errors.Errorf("invalid max length %d", cfg.MaxLength)
	}
	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		return nil, errors.Errorf("model endpoint must be an http(s) URL, got %q", cfg.Endpoint)
	}

	return &Handle{
		config: cfg,
		url:    strings.TrimRight(cfg.Endpoint, "/") + "/" + strings.TrimLeft(cfg.Name, "/"),
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the model identifier.
func (h *Handle) Name() string { return h.config.Name }

// MaxLength returns the input token budget.
func (h *Handle) MaxLength() int { return h.config.MaxLength }

// ============================================================================
// GENERATION CALL
// ============================================================================

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
	Options    generateOptions    `json:"options"`
}

type generateParameters struct {
	MaxLength  int  `json:"max_length"`
	Truncation bool `json:"truncation"`
}

type generateOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type generatedSequence struct {
	GeneratedText string `json:"generated_text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Generate runs one blocking generation round trip and returns the raw
// output sequences, control tokens included.
func (h *Handle) Generate(ctx context.Context, input string) ([]string, error) {
	body, err := json.Marshal(generateRequest{
		Inputs:     input,
		Parameters: generateParameters{MaxLength: h.config.MaxLength, Truncation: true},
		Options:    generateOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if h.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.config.Token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "model request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read model response")
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return nil, errors.Errorf("model %s returned %d: %s", h.config.Name, resp.StatusCode, apiErr.Error)
		}
		return nil, errors.Errorf("model %s returned %d: %s", h.config.Name, resp.StatusCode, truncate(string(raw), 200))
	}

	var seqs []generatedSequence
	if err := json.Unmarshal(raw, &seqs); err != nil {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return nil, errors.Errorf("model %s error: %s", h.config.Name, apiErr.Error)
		}
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	out := make([]string, len(seqs))
	for i, s := range seqs {
		out[i] = s.GeneratedText
	}
	return out, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
