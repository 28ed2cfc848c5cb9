package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jammor/nexus/app/sources"
)

const systemPrompt = "You are a precise summarizer. Follow the requested output format exactly."

// Error marks a summarization failure. Callers treat it as soft: the item is
// stored with its raw content and picked up again on a later run.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("summarization failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Summarizer produces structured summaries through an OpenAI-compatible chat
// completions endpoint.
type Summarizer struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	chunkSize   int
}

func New(apiKey string, config sources.SummarizeConfig) *Summarizer {
	return &Summarizer{
		httpClient:  &http.Client{Timeout: time.Duration(config.Timeout) * time.Second},
		endpoint:    config.Endpoint,
		apiKey:      apiKey,
		model:       config.Model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		chunkSize:   config.ChunkSize,
	}
}

// Summarize produces a structured summary of the text. Texts longer than the
// chunk budget are summarized per chunk, then the chunk summaries are
// summarized again into the final result.
func (s *Summarizer) Summarize(ctx context.Context, title, text string) (*Summary, error) {
	if s.apiKey == "" {
		return nil, &Error{Err: fmt.Errorf("no API key configured")}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &Error{Err: fmt.Errorf("nothing to summarize")}
	}

	chunks := splitChunks(text, chunkWords(s.chunkSize))

	if len(chunks) == 1 {
		return s.summarizeOne(ctx, title, chunks[0])
	}

	slog.Debug("Summarizing in chunks", "title", title, "chunks", len(chunks))

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		prompt := fmt.Sprintf("Summarize part %d of %d of %q in one dense paragraph:\n\n%s",
			i+1, len(chunks), title, chunk)
		partial, err := s.complete(ctx, prompt)
		if err != nil {
			return nil, &Error{Err: err}
		}
		partials = append(partials, partial)
	}

	return s.summarizeOne(ctx, title, strings.Join(partials, "\n\n"))
}

func (s *Summarizer) summarizeOne(ctx context.Context, title, text string) (*Summary, error) {
	raw, err := s.complete(ctx, buildPrompt(title, text))
	if err != nil {
		return nil, &Error{Err: err}
	}
	return parseSummary(raw), nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("completion error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

func buildPrompt(title, text string) string {
	var b strings.Builder
	b.WriteString("Summarize the following content titled ")
	fmt.Fprintf(&b, "%q.\n\n", title)
	b.WriteString("Respond in exactly this format:\n")
	b.WriteString("TL;DR: <two or three sentences>\n")
	b.WriteString("Takeaways:\n- <takeaway>\n")
	b.WriteString("Quotes:\n- <notable quote, if any>\n")
	b.WriteString("Topics:\n- <topic keyword>\n\n")
	b.WriteString(text)
	return b.String()
}

// chunkWords converts the configured character budget into a word budget.
// A token is roughly four characters and a word roughly 1.33 tokens.
func chunkWords(chunkSize int) int {
	words := int(float64(chunkSize) * 0.75)
	if words < 1 {
		words = 1
	}
	return words
}

func splitChunks(text string, maxWords int) []string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(words); start += maxWords {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
