/*
Package provider contains the external collaborators the chat core consumes but
does not depend on for correctness: a directory of candidate identities for
pre-populated login choices, and a catalogue of shareable image references.

Both are read-only and best-effort. When a provider is unavailable the server
keeps running with empty results; manual identity entry and direct
image-reference sharing still work.
*/
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"relaychat/internal/app/identity"
	"relaychat/internal/pkg/logx"
)

// Directory returns a bounded list of candidate identities for login screens.
type Directory interface {
	Candidates(ctx context.Context) ([]identity.Identity, error)
}

// directoryResponse mirrors the randomuser.me API shape.
type directoryResponse struct {
	Results []struct {
		Login struct {
			UUID string `json:"uuid"`
		} `json:"login"`
		Name struct {
			First string `json:"first"`
			Last  string `json:"last"`
		} `json:"name"`
		Picture struct {
			Medium string `json:"medium"`
		} `json:"picture"`
	} `json:"results"`
}

// HTTPDirectory fetches candidate identities from a randomuser-style endpoint.
type HTTPDirectory struct {
	endpoint string
	count    int
	client   *http.Client
	logger   zerolog.Logger
}

// NewHTTPDirectory constructs a directory over endpoint, requesting at most
// count candidates per fetch.
func NewHTTPDirectory(endpoint string, count int, client *http.Client) *HTTPDirectory {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPDirectory{
		endpoint: endpoint,
		count:    count,
		client:   client,
		logger:   logx.Logger().With().Str("component", "HTTPDirectory").Logger(),
	}
}

// Candidates fetches the candidate list. On any failure it returns a non-nil
// error and no candidates; callers treat that as an empty directory.
func (d *HTTPDirectory) Candidates(ctx context.Context) ([]identity.Identity, error) {
	reqURL, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid directory endpoint: %w", err)
	}

	query := reqURL.Query()
	query.Set("results", strconv.Itoa(d.count))
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory fetch returned status %d", resp.StatusCode)
	}

	var parsed directoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}

	candidates := make([]identity.Identity, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		name := r.Name.First
		if r.Name.Last != "" {
			name += " " + r.Name.Last
		}

		candidates = append(candidates, identity.Identity{
			ID:          r.Login.UUID,
			DisplayName: name,
			AvatarRef:   r.Picture.Medium,
		})

		if len(candidates) >= d.count {
			break
		}
	}

	d.logger.Debug().Int("candidates", len(candidates)).Msg("Directory fetch completed.")

	return candidates, nil
}
