// Package remote talks to the survey store endpoint: one URL, three roles.
// GET with action=config returns the catalog and params, a bare GET lists
// submitted surveys, POST submits a completed one.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"moveline/internal/catalog"
	"moveline/internal/domain"
	"moveline/internal/estimate"
	"moveline/internal/inventory"
)

// Submission is the POST body for a completed survey: the mission fields
// flattened at the top level, plus inventory, the computed estimate and the
// submission timestamp.
type Submission struct {
	domain.Mission
	Inventory inventory.Ledger  `json:"inventory"`
	Stats     estimate.Estimate `json:"stats"`
	Date      string            `json:"date" format:"date-time"`
}

// Client is the HTTP client for the store endpoint.
type Client struct {
	Endpoint   string
	HTTPClient *http.Client
}

// New returns a client with retrying transport and a bounded per-attempt
// timeout. The store is a spreadsheet-backed web app and flakes under load.
func New(endpoint string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.Logger = nil
	return &Client{
		Endpoint:   endpoint,
		HTTPClient: rc.StandardClient(),
	}
}

// FetchConfig retrieves and parses the remote catalog. Any failure, from
// transport to schema, is returned as an error; the caller decides to fall
// back to the built-in defaults, whole, never merged.
func (c *Client) FetchConfig(ctx context.Context) (*catalog.Catalog, error) {
	body, err := c.get(ctx, c.Endpoint+"?action=config")
	if err != nil {
		return nil, err
	}
	return catalog.ParseRemote(body)
}

// FetchHistory lists previously submitted surveys. Rows are decoded
// defensively: a field that is missing or of the wrong type becomes its zero
// value, and the inventory snapshot stays string-encoded for the caller to
// parse with inventory.ParseSnapshot.
func (c *Client) FetchHistory(ctx context.Context) ([]domain.HistoryRow, error) {
	body, err := c.get(ctx, c.Endpoint)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("history payload: not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if root.Get("status").String() != "success" {
		return nil, fmt.Errorf("history payload: status %q", root.Get("status").String())
	}
	data := root.Get("data")
	if !data.IsArray() {
		return nil, fmt.Errorf("history payload: data is not an array")
	}
	var rows []domain.HistoryRow
	data.ForEach(func(_, r gjson.Result) bool {
		rows = append(rows, domain.HistoryRow{
			Client:     r.Get("client").String(),
			Site:       r.Get("site").String(),
			Date:       r.Get("date").String(),
			MoveVolume: r.Get("volMove").Float(),
			DisposeVol: r.Get("volTrash").Float(),
			CrewDays:   r.Get("manDays").Float(),
			Vehicle:    r.Get("vehicle").String(),
			Cost:       r.Get("cost").Float(),
			Access:     r.Get("access").String(),
			Parking:    r.Get("parking").String(),
			GPS:        r.Get("gps").String(),
			Comments:   r.Get("comments").String(),
			AudioCount: int(r.Get("audioCount").Int()),
			Inventory:  r.Get("inventory").String(),
		})
		return true
	})
	return rows, nil
}

// Submit posts a completed survey. The store replies with an opaque body, so
// only the transport outcome counts: a response means delivered, a transport
// error (after retries) means failed and the caller stages a local backup.
func (c *Client) Submit(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("store returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
