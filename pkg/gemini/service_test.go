package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *GeminiService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g := NewGeminiService("test-key")
	g.BaseURL = srv.URL
	return g
}

func TestGenerate(t *testing.T) {
	g := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key")
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["contents"]; !ok {
			t.Errorf("payload missing contents")
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"CS101"}]}}]}`))
	})

	got, err := g.Generate(context.Background(), "classify")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "CS101" {
		t.Errorf("Generate() = %q, want CS101", got)
	}
}

func TestGenerateNoCandidates(t *testing.T) {
	g := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})
	if _, err := g.Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestGenerateQuotaError(t *testing.T) {
	g := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := g.Generate(context.Background(), "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.HTTPStatus() != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", apiErr.HTTPStatus())
	}
}

func TestEmbed(t *testing.T) {
	g := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			TaskType string `json:"taskType"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.TaskType != TaskRetrievalQuery {
			t.Errorf("taskType = %q, want %q", body.TaskType, TaskRetrievalQuery)
		}
		w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	})

	vec, err := g.Embed(context.Background(), "midterm", TaskRetrievalQuery)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("len = %d, want 3", len(vec))
	}
}
