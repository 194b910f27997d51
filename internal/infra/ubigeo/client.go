package ubigeo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront/internal/domain/model"
)

var ErrFetchFailed = errors.New("ubigeo: fetch failed")

// Client は { departamento: { provincia: { distrito: ... } } } 形式の一覧を取得する
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Fetch(ctx context.Context) ([]model.Ubigeo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("ubigeo: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("ubigeo: failed to read response: %w", err)
	}
	return Flatten(body)
}

// Flatten は入れ子の JSON を (departamento, provincia, distrito) の行にする。
// 末端の値（コードなど）は使わない
func Flatten(raw []byte) ([]model.Ubigeo, error) {
	var doc map[string]map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("ubigeo: unexpected document: %w", err)
	}

	rows := []model.Ubigeo{}
	for dep, provinces := range doc {
		for prov, districts := range provinces {
			for dist := range districts {
				rows = append(rows, model.Ubigeo{Department: dep, Province: prov, District: dist})
			}
		}
	}
	return rows, nil
}
