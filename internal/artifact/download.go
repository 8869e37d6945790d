// HuggingFace-backed remote file listing, grounded on
// proxy/model_search.go's HuggingFaceSearchResponse/HFSibling shapes and
// proxy/proxymanager.go's searchHuggingFaceModel. Rate-limited client-side
// with golang.org/x/time/rate rather than the upstream's unthrottled calls.
package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
	"golang.org/x/time/rate"
)

// HFSibling is one file entry in a HuggingFace repo listing.
type HFSibling struct {
	RFilename string `json:"rfilename"`
	Size      int64  `json:"size,omitempty"`
}

// hfModelInfo is the subset of the HuggingFace /api/models/{repo} response
// this resolver needs.
type hfModelInfo struct {
	ID       string      `json:"id"`
	Gated    bool        `json:"gated"`
	Private  bool        `json:"private"`
	Siblings []HFSibling `json:"siblings"`
}

const hfAPIBaseURL = "https://huggingface.co/api/models/"

type hfLister struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

func newHFLister() *hfLister {
	return &hfLister{
		client:  &http.Client{Timeout: 20 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second/2), 4), // 2 req/s, small burst
		baseURL: hfAPIBaseURL,
	}
}

// ListFiles fetches a repository's file listing from the HuggingFace Hub
// API. authToken, or HUGGINGFACE_TOKEN from the environment when authToken
// is empty, is sent as "Authorization: Bearer <token>".
func (h *hfLister) ListFiles(repo, authToken string) ([]string, error) {
	if authToken == "" {
		authToken = os.Getenv("HUGGINGFACE_TOKEN")
	}
	if err := h.limiter.Wait(context.Background()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := h.baseURL + repo
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch repo listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, hearthrunerr.Newf(hearthrunerr.AuthRequired, "auth required for repo %s (status %d)", repo, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, repo)
	}

	var info hfModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode repo listing: %w", err)
	}

	files := make([]string, 0, len(info.Siblings))
	for _, s := range info.Siblings {
		files = append(files, s.RFilename)
	}
	return files, nil
}
