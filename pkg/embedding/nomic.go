package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"navigator-backend/pkg/ai"
	"navigator-backend/pkg/textutil"
)

const (
	NomicURL   = "https://api-atlas.nomic.ai/v1/embedding/text"
	NomicModel = "nomic-embed-text-v1.5"

	maxInputChars = 30000
)

// NomicError is returned for any non-200 answer from the Nomic API.
type NomicError struct {
	StatusCode int
	Body       string
}

func (e *NomicError) Error() string {
	return fmt.Sprintf("nomic API error (%d): %s", e.StatusCode, e.Body)
}

func (e *NomicError) HTTPStatus() int { return e.StatusCode }

// NomicClient calls the Nomic Atlas embedding API
type NomicClient struct {
	apiKey string
	url    string
	client *http.Client
}

// NewNomicClient creates a new NomicClient
func NewNomicClient(apiKey string) *NomicClient {
	return &NomicClient{
		apiKey: apiKey,
		url:    NomicURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithURL points the client at another endpoint.
func (n *NomicClient) WithURL(url string) *NomicClient {
	n.url = url
	return n
}

func (n *NomicClient) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	taskType := "search_document"
	if task == TaskQuery {
		taskType = "search_query"
	}

	payload := map[string]interface{}{
		"model":     NomicModel,
		"texts":     []string{textutil.Truncate(text, maxInputChars)},
		"task_type": taskType,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, ai.Classify("nomic", fmt.Errorf("nomic request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ai.Classify("nomic", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Nomic] API error %d", resp.StatusCode)
		return nil, ai.Classify("nomic", &NomicError{StatusCode: resp.StatusCode, Body: string(respBody)})
	}

	var result struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, ai.Classify("nomic", fmt.Errorf("failed to parse response: %w", err))
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0]) == 0 {
		return nil, &ai.ProviderError{Provider: "nomic", Kind: ai.KindMalformed, Err: fmt.Errorf("empty embedding")}
	}

	return result.Embeddings[0], nil
}
