package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"leadgate/internal/lead"
)

// MarketplaceClient pulls pre-packaged batches from a third-party lead
// marketplace.
type MarketplaceClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	now     func() time.Time
}

func NewMarketplaceClient(baseURL, apiKey string, timeout time.Duration) *MarketplaceClient {
	return &MarketplaceClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// FetchBatch returns all leads in one marketplace batch.
func (m *MarketplaceClient) FetchBatch(ctx context.Context, batchID string) ([]lead.Record, error) {
	if m.apiKey == "" {
		return nil, ErrMissingCredentials
	}

	endpoint := fmt.Sprintf("%s/batches/%s/leads", m.baseURL, url.PathEscape(batchID))
	payloads, err := fetchLeads(ctx, m.client, endpoint, m.apiKey)
	if err != nil {
		return nil, fmt.Errorf("marketplace fetch for batch %s: %w", batchID, err)
	}

	records := make([]lead.Record, 0, len(payloads))
	for _, p := range payloads {
		records = append(records, Normalize(p.toRecord(), lead.SourceMarketplace, m.now()))
	}
	return records, nil
}
