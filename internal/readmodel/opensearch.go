package readmodel

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/carelog-systems/carelog-projector/internal/model"
)

// OpenSearchConfig holds connection settings for the OpenSearch read model.
type OpenSearchConfig struct {
	URL           string
	Username      string
	Password      string
	TLSSkipVerify bool
	Index         string
	BatchSize     int
}

// DefaultOpenSearchConfig returns sensible defaults for the OpenSearch store.
func DefaultOpenSearchConfig() OpenSearchConfig {
	return OpenSearchConfig{
		URL:           "https://localhost:9200",
		Username:      "admin",
		TLSSkipVerify: true,
		Index:         "carelog-readmodel",
		BatchSize:     1000,
	}
}

// OpenSearchStore keeps a searchable copy of the read model, typically
// receiving the HISTORY kind for audit queries. Documents are indexed under the escaped
// "PK|SK" id, so re-indexing a key overwrites the prior document.
type OpenSearchStore struct {
	client *opensearch.Client
	index  string
	batch  int
}

// NewOpenSearchStore creates an OpenSearch-backed store and verifies the
// connection.
func NewOpenSearchStore(cfg OpenSearchConfig) (*OpenSearchStore, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.TLSSkipVerify},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("connect to opensearch: %w", err)
	}
	defer info.Body.Close()
	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 1000
	}
	return &OpenSearchStore{client: client, index: cfg.Index, batch: batch}, nil
}

// Name implements Store.
func (s *OpenSearchStore) Name() string { return "opensearch" }

// MaxBatchSize implements Store.
func (s *OpenSearchStore) MaxBatchSize() int { return s.batch }

// DocumentID returns the bulk document id for a record identity.
func DocumentID(key model.RecordKey) string {
	return url.PathEscape(key.PK + "|" + key.SK)
}

// PutBatch implements Store with a bulk indexer. Items the bulk API rejects
// come back as the unprocessed subset.
func (s *OpenSearchStore) PutBatch(ctx context.Context, records []model.IndexRecord) ([]model.IndexRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client: s.client,
		Index:  s.index,
	})
	if err != nil {
		return records, fmt.Errorf("create bulk indexer: %w", err)
	}

	var mu sync.Mutex
	var unprocessed []model.IndexRecord

	for i, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return records, fmt.Errorf("marshal record %s/%s: %w", record.PK, record.SK, err)
		}

		failed := records[i]
		item := opensearchutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: DocumentID(record.Key()),
			Body:       bytes.NewReader(data),
			OnFailure: func(_ context.Context, _ opensearchutil.BulkIndexerItem, _ opensearchutil.BulkIndexerResponseItem, _ error) {
				mu.Lock()
				unprocessed = append(unprocessed, failed)
				mu.Unlock()
			},
		}
		if err := bi.Add(ctx, item); err != nil {
			mu.Lock()
			unprocessed = append(unprocessed, failed)
			mu.Unlock()
		}
	}

	if err := bi.Close(ctx); err != nil {
		return records, fmt.Errorf("flush bulk indexer: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return unprocessed, nil
}

// Close implements Store. The OpenSearch client has no resources to release.
func (s *OpenSearchStore) Close() error { return nil }
