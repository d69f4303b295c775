package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// FallbackSummary is returned whenever the text-generation service cannot
// produce a draft note in time.
const FallbackSummary = "AI service temporarily unavailable. Patient requires manual review by healthcare provider. " +
	"Please check recent vitals, medication compliance, and schedule appropriate follow-up based on presenting " +
	"symptoms and medical history."

// Summary is the result of a draft-note request. UsedFallback is true when
// the text is the locally generated substitute.
type Summary struct {
	Text         string
	UsedFallback bool
}

// SummaryProvider produces a draft clinical note from a prompt. It never
// fails: any transport or timeout problem yields the fallback text.
type SummaryProvider interface {
	Summarize(ctx context.Context, prompt string) Summary
}

// OllamaProvider calls an Ollama-compatible /api/generate endpoint.
type OllamaProvider struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

func NewOllamaProvider(baseURL, model string, timeout time.Duration, log zerolog.Logger) *OllamaProvider {
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (p *OllamaProvider) Summarize(ctx context.Context, prompt string) Summary {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{Model: p.model, Prompt: prompt, Stream: false})
	if err != nil {
		return p.fallback("marshal generate request", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return p.fallback("build generate request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return p.fallback("call generate endpoint", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return p.fallback("generate endpoint", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return p.fallback("decode generate response", err)
	}
	if out.Response == "" {
		return p.fallback("generate response", fmt.Errorf("empty response text"))
	}

	return Summary{Text: out.Response}
}

func (p *OllamaProvider) fallback(stage string, err error) Summary {
	p.log.Warn().Err(err).Str("stage", stage).Msg("summary provider unavailable, using fallback")
	return Summary{Text: FallbackSummary, UsedFallback: true}
}

// StaticProvider always answers with the fallback text. Used when no
// generation service is configured.
type StaticProvider struct{}

func (StaticProvider) Summarize(ctx context.Context, prompt string) Summary {
	return Summary{Text: FallbackSummary, UsedFallback: true}
}
