package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jammor/nexus/app/sources"
)

const sampleResponse = `TL;DR: The talk argues that consensus protocols trade availability for consistency.
Takeaways:
- Quorums shrink the failure window
- Leases avoid split brain
Quotes:
- "Plan for the partition, not around it"
Topics:
- distributed systems
- consensus`

func testConfig(endpoint string) sources.SummarizeConfig {
	return sources.SummarizeConfig{
		Endpoint:    endpoint,
		Model:       "gpt-4o-mini",
		MaxTokens:   1000,
		Temperature: 0.3,
		ChunkSize:   8000,
		Timeout:     5,
	}
}

func completionsHandler(t *testing.T, reply func(prompt string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %q", r.Header.Get("Authorization"))
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		prompt := req.Messages[len(req.Messages)-1].Content

		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: reply(prompt)}}},
		})
	}
}

func TestSummarize(t *testing.T) {
	server := httptest.NewServer(completionsHandler(t, func(string) string { return sampleResponse }))
	defer server.Close()

	s := New("test-key", testConfig(server.URL))

	summary, err := s.Summarize(context.Background(), "Consensus Talk", "a long transcript about consensus")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.HasPrefix(summary.TLDR, "The talk argues") {
		t.Errorf("Unexpected TL;DR: %q", summary.TLDR)
	}
	if len(summary.Takeaways) != 2 {
		t.Errorf("Expected 2 takeaways, got %v", summary.Takeaways)
	}
	if len(summary.Quotes) != 1 {
		t.Errorf("Expected 1 quote, got %v", summary.Quotes)
	}
	if len(summary.Topics) != 2 {
		t.Errorf("Expected 2 topics, got %v", summary.Topics)
	}
}

func TestSummarizeChunked(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(completionsHandler(t, func(prompt string) string {
		calls.Add(1)
		if strings.HasPrefix(prompt, "Summarize part") {
			return "partial summary"
		}
		return sampleResponse
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.ChunkSize = 10 // forces word-based chunking on a short text
	s := New("test-key", config)

	text := strings.Repeat("word ", 100)
	summary, err := s.Summarize(context.Background(), "Long Thing", text)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if summary.TLDR == "" {
		t.Error("Expected a TL;DR from the reduce step")
	}
	// 100 words at 7 words per chunk is 15 map calls plus 1 reduce call
	if calls.Load() < 3 {
		t.Errorf("Expected chunked summarization to make multiple calls, got %d", calls.Load())
	}
}

func TestSummarizeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := New("test-key", testConfig(server.URL))

	_, err := s.Summarize(context.Background(), "Title", "some text")
	if err == nil {
		t.Fatal("Expected error for HTTP 500")
	}

	var sumErr *Error
	if !errors.As(err, &sumErr) {
		t.Errorf("Expected *Error, got %T", err)
	}
}

func TestSummarizeNoAPIKey(t *testing.T) {
	s := New("", testConfig("http://unused"))

	_, err := s.Summarize(context.Background(), "Title", "some text")
	if err == nil {
		t.Fatal("Expected error without API key")
	}
}

func TestParseSummaryUnstructured(t *testing.T) {
	summary := parseSummary("The model just rambled without any format.")
	if summary.TLDR != "" {
		t.Errorf("Expected empty TL;DR, got %q", summary.TLDR)
	}
	if summary.Raw == "" {
		t.Error("Expected raw text to be preserved")
	}
	if summary.Text() != summary.Raw {
		t.Errorf("Expected Text() to fall back to raw, got %q", summary.Text())
	}
}

func TestSummaryTextRoundTrip(t *testing.T) {
	parsed := parseSummary(sampleResponse)
	rendered := parsed.Text()

	again := parseSummary(rendered)
	if again.TLDR != parsed.TLDR {
		t.Errorf("TL;DR changed: %q vs %q", again.TLDR, parsed.TLDR)
	}
	if len(again.Takeaways) != len(parsed.Takeaways) {
		t.Errorf("Takeaways changed: %v vs %v", again.Takeaways, parsed.Takeaways)
	}
}

func TestSplitChunks(t *testing.T) {
	chunks := splitChunks("one two three four five", 2)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != "one two" || chunks[2] != "five" {
		t.Errorf("Unexpected chunks: %v", chunks)
	}

	chunks = splitChunks("short text", 100)
	if len(chunks) != 1 {
		t.Errorf("Expected 1 chunk for short text, got %d", len(chunks))
	}
}
