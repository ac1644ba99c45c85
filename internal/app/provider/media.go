package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"relaychat/internal/pkg/logx"
)

// ImageRef is one shareable image reference offered to clients.
type ImageRef struct {
	ID          string `json:"id"`
	Author      string `json:"author"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
}

// Media returns a bounded list of shareable image references. Images serves
// from an in-memory catalogue; Refresh re-fetches it.
type Media interface {
	Images(ctx context.Context) []ImageRef
	Refresh(ctx context.Context) (int, error)
}

// HTTPMedia fetches image lists from picsum-style endpoints. Endpoints are
// tried in order per refresh; the first successful response wins. If every
// endpoint fails the catalogue falls back to a static generated list so the
// gallery is never empty.
type HTTPMedia struct {
	endpoints []string
	client    *http.Client
	logger    zerolog.Logger

	// mu protects cached. Refresh runs outside the hub loop (startup and the
	// refresh endpoint), so the catalogue needs its own lock.
	mu     sync.RWMutex
	cached []ImageRef
}

// NewHTTPMedia constructs a media catalogue over the given list endpoints.
func NewHTTPMedia(endpoints []string, client *http.Client) *HTTPMedia {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPMedia{
		endpoints: endpoints,
		client:    client,
		logger:    logx.Logger().With().Str("component", "HTTPMedia").Logger(),
	}
}

// Images returns the current catalogue, fetching it first if empty.
func (m *HTTPMedia) Images(ctx context.Context) []ImageRef {
	m.mu.RLock()
	cached := m.cached
	m.mu.RUnlock()

	if len(cached) > 0 {
		return cached
	}

	if _, err := m.Refresh(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Media fetch failed. Serving fallback catalogue.")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cached
}

// Refresh re-fetches the catalogue and returns the new image count. When every
// endpoint fails it installs the fallback catalogue and returns the fetch error
// alongside the fallback count.
func (m *HTTPMedia) Refresh(ctx context.Context) (int, error) {
	var lastErr error

	for _, endpoint := range m.endpoints {
		refs, err := m.fetch(ctx, endpoint)
		if err != nil {
			m.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Media endpoint fetch failed. Trying next.")
			lastErr = err
			continue
		}

		m.mu.Lock()
		m.cached = refs
		m.mu.Unlock()

		m.logger.Info().Int("images", len(refs)).Str("endpoint", endpoint).Msg("Media catalogue refreshed.")
		return len(refs), nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no media endpoints configured")
	}

	fallback := fallbackImages()

	m.mu.Lock()
	m.cached = fallback
	m.mu.Unlock()

	m.logger.Warn().Int("images", len(fallback)).Msg("All media endpoints failed. Installed fallback catalogue.")

	return len(fallback), lastErr
}

func (m *HTTPMedia) fetch(ctx context.Context, endpoint string) ([]ImageRef, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build media request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media fetch returned status %d", resp.StatusCode)
	}

	var refs []ImageRef
	if err := json.NewDecoder(resp.Body).Decode(&refs); err != nil {
		return nil, fmt.Errorf("failed to decode media response: %w", err)
	}

	return refs, nil
}

// fallbackImageIDs is a curated set of known-good picsum photo IDs used when
// the list endpoints are unreachable.
var fallbackImageIDs = []int{
	237, 433, 593, 659, 718, 783, 790, 837, 984, 1025,
	1035, 1043, 1074, 1084, 112, 119, 146, 157, 180, 206,
	225, 250, 292, 306, 334, 349, 367, 381, 420, 449,
	500, 548, 564, 585, 628, 683, 691, 730, 774, 798,
	823, 870, 901, 922, 943, 967, 1003, 1015, 1044, 1069,
}

func fallbackImages() []ImageRef {
	refs := make([]ImageRef, 0, len(fallbackImageIDs))

	for i, id := range fallbackImageIDs {
		width := 400 + (i%3)*100
		height := 300 + (i%3)*100
		u := fmt.Sprintf("https://picsum.photos/id/%d/%d/%d", id, width, height)

		refs = append(refs, ImageRef{
			ID:          strconv.Itoa(id),
			Author:      "Picsum Photos",
			Width:       width,
			Height:      height,
			URL:         u,
			DownloadURL: u,
		})
	}

	return refs
}
