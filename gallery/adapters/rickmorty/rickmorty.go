package rickmorty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"morty.dev/characters/gallery/core"
)

const DefaultBaseURL = "https://rickandmortyapi.com/api/character"

type Client struct {
	log      *slog.Logger
	baseURL  string
	attempts int
	backoff  time.Duration
	http     *http.Client
}

func NewClient(baseURL string, timeout time.Duration, attempts int, log *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("empty base url")
	}
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		log:      log,
		baseURL:  strings.TrimRight(baseURL, "/"),
		attempts: attempts,
		backoff:  500 * time.Millisecond,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

type characterResp struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Image   string `json:"image"`
	Status  string `json:"status"`
	Species string `json:"species"`
}

type listResp struct {
	Info struct {
		Count int    `json:"count"`
		Pages int    `json:"pages"`
		Next  string `json:"next"`
	} `json:"info"`
	Results []characterResp `json:"results"`
}

func (c characterResp) toCore() core.Character {
	return core.Character{
		ID:      c.ID,
		Name:    c.Name,
		Image:   c.Image,
		Status:  c.Status,
		Species: c.Species,
	}
}

// getJSON retries transport errors and 5xx answers. 404 maps to core.ErrNotFound.
func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		retry, err := c.do(ctx, target, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == c.attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * c.backoff):
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, target string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return true, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warn("close response body failed", "error", cerr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, core.ErrNotFound
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("%w: unexpected status: %s", core.ErrUnavailable, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("%w: unexpected status: %s", core.ErrBadResponse, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, fmt.Errorf("%w: decode: %v", core.ErrBadResponse, err)
	}
	return false, nil
}

func (c *Client) list(ctx context.Context, query url.Values) ([]core.Character, error) {
	var lr listResp
	if err := c.getJSON(ctx, c.baseURL+"/?"+query.Encode(), &lr); err != nil {
		return nil, err
	}
	out := make([]core.Character, 0, len(lr.Results))
	for _, cr := range lr.Results {
		out = append(out, cr.toCore())
	}
	return out, nil
}

func (c *Client) Page(ctx context.Context, n int) ([]core.Character, error) {
	if n < 1 {
		return nil, core.ErrBadArguments
	}
	return c.list(ctx, url.Values{"page": {strconv.Itoa(n)}})
}

func (c *Client) Search(ctx context.Context, query string) ([]core.Character, error) {
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrBadArguments
	}
	return c.list(ctx, url.Values{"name": {query}})
}

func (c *Client) ByID(ctx context.Context, id int) (core.Character, error) {
	if id < 1 {
		return core.Character{}, core.ErrBadArguments
	}
	var cr characterResp
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%d", c.baseURL, id), &cr); err != nil {
		return core.Character{}, err
	}
	return cr.toCore(), nil
}

// Ping checks that the listing endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, c.baseURL+"/?page=1", &listResp{})
	return err
}
