package audit

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// OriginUnknown is recorded when the network origin cannot be determined.
// Lookup failure is an accepted degradation, never an error.
const OriginUnknown = "unknown"

const defaultOriginEndpoint = "https://api.ipify.org"

// OriginResolver looks up the public address the pipeline runs from, for the
// audit trail's origin column. The result is cached for the process lifetime;
// the lookup uses a short bounded timeout so a slow endpoint cannot stall an
// audit write.
type OriginResolver struct {
	endpoint string
	client   *http.Client

	once   sync.Once
	cached string
}

// NewOriginResolver builds a resolver against the given endpoint; empty means
// the default public echo service.
func NewOriginResolver(endpoint string) *OriginResolver {
	if endpoint == "" {
		endpoint = defaultOriginEndpoint
	}
	return &OriginResolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 2 * time.Second},
	}
}

// Resolve returns the cached origin, performing the lookup on first use.
func (r *OriginResolver) Resolve(ctx context.Context) string {
	r.once.Do(func() {
		r.cached = r.lookup(ctx)
	})
	return r.cached
}

func (r *OriginResolver) lookup(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		return OriginUnknown
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return OriginUnknown
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return OriginUnknown
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return OriginUnknown
	}
	origin := strings.TrimSpace(string(body))
	if origin == "" {
		return OriginUnknown
	}
	return origin
}
