package usecase

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	emaildomain "navigator-backend/internal/email/domain"
	"navigator-backend/pkg/embedding"
)

const defaultTopK = 10

// CosineSimilarity returns dot(a,b)/(|a||b|), or 0 when the vectors differ
// in length or either has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankBySimilarity scores every row against query and returns the topK best,
// most similar first. Equal scores keep their input order.
func RankBySimilarity(query []float32, rows []*emaildomain.EmailEmbedding, topK int) []*emaildomain.ScoredEmail {
	scored := make([]*emaildomain.ScoredEmail, 0, len(rows))
	for _, row := range rows {
		scored = append(scored, &emaildomain.ScoredEmail{
			EmailEmbedding: *row,
			Similarity:     CosineSimilarity(query, row.Embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

func (u *emailUsecase) Search(ctx context.Context, userID, query string, topK int) ([]*emaildomain.ScoredEmail, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*emaildomain.ScoredEmail{}, nil
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	log.Printf("[Search] Query: %q", query)

	if u.vectorIndex != nil {
		results, err := u.searchIndex(ctx, userID, query, topK)
		if err == nil {
			return results, nil
		}
		log.Printf("[Search] Vector index failed, falling back to full scan: %v", err)
	}

	embedCtx, cancel := context.WithTimeout(ctx, u.providerTimeout)
	defer cancel()
	vector, err := u.embedder.Embed(embedCtx, query, embedding.TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}

	rows, err := u.repos.Embeddings.FindByUser(userID)
	if err != nil {
		return nil, storeErr("load embeddings", err)
	}

	results := RankBySimilarity(vector, rows, topK)
	log.Printf("[Search] Found %d results, returning top %d", len(rows), len(results))
	return results, nil
}

// searchIndex asks the ANN index for IDs and hydrates them from the store,
// keeping the index's order. Index distances are turned into similarities.
func (u *emailUsecase) searchIndex(ctx context.Context, userID, query string, topK int) ([]*emaildomain.ScoredEmail, error) {
	ids, distances, err := u.vectorIndex.Query(ctx, userID, query, topK)
	if err != nil {
		return nil, err
	}
	rows, err := u.repos.Embeddings.FindByIDs(userID, ids)
	if err != nil {
		return nil, storeErr("load embeddings", err)
	}
	byID := make(map[string]*emaildomain.EmailEmbedding, len(rows))
	for _, row := range rows {
		byID[row.EmailID] = row
	}

	results := make([]*emaildomain.ScoredEmail, 0, len(ids))
	for i, id := range ids {
		row, ok := byID[id]
		if !ok {
			continue
		}
		similarity := 0.0
		if i < len(distances) {
			similarity = 1 - distances[i]
		}
		results = append(results, &emaildomain.ScoredEmail{EmailEmbedding: *row, Similarity: similarity})
	}
	return results, nil
}

func (u *emailUsecase) RAGStats(userID string) (*RAGStats, error) {
	count, err := u.repos.Embeddings.CountByUser(userID)
	if err != nil {
		return nil, storeErr("count embeddings", err)
	}
	stats := &RAGStats{TotalEmails: count, IndexBacked: u.vectorIndex != nil}

	status, err := u.repos.SyncStatus.Get(userID)
	if err != nil {
		return nil, storeErr("load sync status", err)
	}
	if status != nil {
		stats.LastSync = status.LastSync
	}
	return stats, nil
}
