//go:build integration
// +build integration

package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/network/netpoll"

	"github.com/lvyanru/stockchat/internal/config"
	"github.com/lvyanru/stockchat/internal/handler"
	"github.com/lvyanru/stockchat/internal/handler/dto"
	"github.com/lvyanru/stockchat/internal/infrastructure/finance"
	"github.com/lvyanru/stockchat/internal/infrastructure/groq"
	"github.com/lvyanru/stockchat/internal/ratelimit"
	"github.com/lvyanru/stockchat/internal/router"
	"github.com/lvyanru/stockchat/internal/usecase"
)

const testPort = 18080

// TestRelayHTTP runs the full relay against fake providers: a fake
// completion endpoint emitting provider-format SSE and a fake chart
// endpoint, with a real Hertz server in between.
// Run with: make test-integration
func TestRelayHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Fake completion provider
	fakeUpstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, content := range []string{"The answer", " is 42."} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer fakeUpstream.Close()

	// Fake chart provider
	chartPayload := `{"chart":{"result":[{"meta":{"symbol":"AAPL","currency":"USD"}}],"error":null}}`
	fakeQuotes := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v8/finance/chart/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, chartPayload)
	}))
	defer fakeQuotes.Close()

	streamer, err := groq.NewClient(config.UpstreamConfig{
		BaseURL: fakeUpstream.URL,
		APIKey:  "test-key",
		Model:   "meta-llama/llama-4-scout-17b-16e-instruct",
		Timeout: 30 * time.Second,
	}, logger)
	if err != nil {
		t.Fatalf("failed to create upstream client: %v", err)
	}

	quotes, err := finance.NewClient(config.StockConfig{
		BaseURL:    fakeQuotes.URL,
		WindowDays: 7,
	}, logger)
	if err != nil {
		t.Fatalf("failed to create quote client: %v", err)
	}

	limiter := ratelimit.NewFixedWindow(3, time.Minute)
	chatHandler := handler.NewChatHandler(usecase.NewChatUsecase(streamer, logger), limiter, logger)
	stockHandler := handler.NewStockHandler(usecase.NewStockUsecase(quotes, logger), logger)
	healthHandler := handler.NewHealthHandler(streamer)

	h := server.New(
		server.WithHostPorts(fmt.Sprintf("127.0.0.1:%d", testPort)),
		server.WithTransport(netpoll.NewTransporter),
	)
	router.Setup(h, chatHandler, stockHandler, healthHandler)

	go func() {
		if err := h.Run(); err != nil {
			logger.Error("server failed", "error", err)
		}
	}()
	time.Sleep(2 * time.Second)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Shutdown(ctx)
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", testPort)

	t.Run("SSE streaming chat", func(t *testing.T) {
		resp := postChat(t, baseURL, dto.ChatRequest{
			Messages: []dto.ChatMessage{{Role: "user", Content: "what is the answer?"}},
		})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
			t.Errorf("Content-Type = %q, want text/event-stream", ct)
		}

		var assembled strings.Builder
		sawDone := false
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				sawDone = true
				break
			}
			var frame struct {
				Content string `json:"content"`
				Error   string `json:"error"`
			}
			if err := json.Unmarshal([]byte(payload), &frame); err != nil {
				t.Fatalf("malformed frame %q: %v", payload, err)
			}
			if frame.Error != "" {
				t.Fatalf("unexpected error frame: %s", frame.Error)
			}
			assembled.WriteString(frame.Content)
		}

		if !sawDone {
			t.Error("stream ended without [DONE]")
		}
		if got := assembled.String(); got != "The answer is 42." {
			t.Errorf("assembled reply = %q, want %q", got, "The answer is 42.")
		}
	})

	t.Run("invalid request rejected", func(t *testing.T) {
		resp := postChat(t, baseURL, dto.ChatRequest{})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("rate limit enforced per client", func(t *testing.T) {
		// The two subtests above consumed two slots (the limiter runs before
		// validation); one more fills the window of 3.
		resp := postChat(t, baseURL, dto.ChatRequest{
			Messages: []dto.ChatMessage{{Role: "user", Content: "hi"}},
		})
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("third request status = %d, want 200", resp.StatusCode)
		}

		resp = postChat(t, baseURL, dto.ChatRequest{
			Messages: []dto.ChatMessage{{Role: "user", Content: "one too many"}},
		})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("status = %d, want 429", resp.StatusCode)
		}
		if resp.Header.Get("Retry-After") == "" {
			t.Error("429 without Retry-After header")
		}

		var errResp dto.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			t.Fatalf("failed to decode error body: %v", err)
		}
		if errResp.Error == "" || errResp.ResetTime == "" {
			t.Errorf("error body = %+v, want error and resetTime", errResp)
		}
		if _, err := time.Parse(time.RFC3339, errResp.ResetTime); err != nil {
			t.Errorf("resetTime %q not RFC3339: %v", errResp.ResetTime, err)
		}
	})

	t.Run("stock proxy passthrough", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/stock?symbol=AAPL")
		if err != nil {
			t.Fatalf("GET /stock failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != chartPayload {
			t.Errorf("body = %s, want the provider payload verbatim", body)
		}
	})

	t.Run("stock rejects bad symbol", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/stock?symbol=not-a-symbol")
		if err != nil {
			t.Fatalf("GET /stock failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("health endpoints", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/health/ready")
		if err != nil {
			t.Fatalf("GET /health/ready failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("readiness status = %d, want 200 with a configured key", resp.StatusCode)
		}
	})
}

func postChat(t *testing.T, baseURL string, reqBody dto.ChatRequest) *http.Response {
	t.Helper()

	bodyBytes, _ := json.Marshal(reqBody)
	req, err := http.NewRequest(http.MethodPost, baseURL+"/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}
