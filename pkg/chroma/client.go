package chroma

import (
	"context"
	"fmt"
	"log"
	"strings"

	"navigator-backend/pkg/config"
	"navigator-backend/pkg/textutil"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

const (
	collectionName = "college_emails"
	maxTextChars   = 10000
)

// ChromaClient is an optional ANN index over email text. Documents are keyed
// "<userID>:<emailID>" and filtered by user_id on query.
type ChromaClient struct {
	client     chroma.Client
	collection chroma.Collection
}

// NewChromaClient connects to Chroma Cloud and opens the email collection
func NewChromaClient(cfg *config.Config) (*ChromaClient, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for the Chroma embedding function")
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithAPIKey(cfg.GeminiAPIKey),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	opts := []chroma.ClientOption{
		chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
		chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
	}
	switch {
	case cfg.ChromaDatabase != "" && cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant))
	case cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithTenant(cfg.ChromaTenant))
	}

	client, err := chroma.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		context.Background(),
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("[Chroma] Initialized collection %s", collectionName)
	return &ChromaClient{client: client, collection: collection}, nil
}

func documentID(userID, emailID string) chroma.DocumentID {
	return chroma.DocumentID(userID + ":" + emailID)
}

// EmailIDFromDocument strips the user prefix from a document ID
func EmailIDFromDocument(userID string, id chroma.DocumentID) string {
	return strings.TrimPrefix(string(id), userID+":")
}

// Upsert indexes the email text. Re-indexing the same email replaces it.
func (c *ChromaClient) Upsert(ctx context.Context, userID, emailID, text string, metadata map[string]interface{}) error {
	text = textutil.Truncate(text, maxTextChars)

	fields := map[string]interface{}{
		"user_id":  userID,
		"email_id": emailID,
	}
	for k, v := range metadata {
		switch v.(type) {
		case string, int, int64, float64, bool:
			fields[k] = v
		}
	}
	meta, err := chroma.NewDocumentMetadataFromMap(fields)
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Upsert(
		ctx,
		chroma.WithIDs(documentID(userID, emailID)),
		chroma.WithMetadatas(meta),
		chroma.WithTexts(text),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert email: %w", err)
	}
	return nil
}

// Query returns the n nearest email IDs for the user with their distances
func (c *ChromaClient) Query(ctx context.Context, userID, query string, n int) ([]string, []float64, error) {
	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(n),
		chroma.WithWhereQuery(chroma.EqString("user_id", userID)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query collection: %w", err)
	}
	if results == nil || results.CountGroups() == 0 {
		return []string{}, []float64{}, nil
	}

	idGroups := results.GetIDGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return []string{}, []float64{}, nil
	}

	emailIDs := make([]string, 0, len(idGroups[0]))
	for _, id := range idGroups[0] {
		emailIDs = append(emailIDs, EmailIDFromDocument(userID, id))
	}

	distances := make([]float64, 0, len(emailIDs))
	if groups := results.GetDistancesGroups(); len(groups) > 0 {
		for _, d := range groups[0] {
			distances = append(distances, float64(d))
		}
	}
	log.Printf("[Chroma] %d results for user %s", len(emailIDs), userID)
	return emailIDs, distances, nil
}

