package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sumire/bebop/internal/domain"
)

const maxExplorerBody = 8 << 20

// Explorer reads CovenantSQL chain data through the explorer's API proxy.
type Explorer struct {
	host string
	http *http.Client
}

// NewExplorer creates an Explorer for host, e.g. https://explorer.dbhub.org.
func NewExplorer(host string, httpClient *http.Client) *Explorer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Explorer{host: strings.TrimSuffix(host, "/"), http: httpClient}
}

// HeadURL is the endpoint returning the latest block of dbID.
func (e *Explorer) HeadURL(dbID string) string {
	return fmt.Sprintf("%s/apiproxy.covenantsql/v2/head/%s", e.host, url.PathEscape(dbID))
}

// RequestURL is the endpoint returning the query recorded under hash.
func (e *Explorer) RequestURL(dbID, hash string) string {
	return fmt.Sprintf("%s/apiproxy.covenantsql/v1/request/%s/%s", e.host, url.PathEscape(dbID), url.PathEscape(hash))
}

// BlockURL is the endpoint listing the queries of block height.
func (e *Explorer) BlockURL(dbID string, height int64) string {
	return fmt.Sprintf("%s/apiproxy.covenantsql/v3/count/%s/%d?page=1&size=999", e.host, url.PathEscape(dbID), height)
}

// Head returns data.block of the head response, or {} when absent.
func (e *Explorer) Head(ctx context.Context, dbID string) (json.RawMessage, error) {
	body, err := e.get(ctx, e.HeadURL(dbID))
	if err != nil {
		return nil, fmt.Errorf("get head: %w", err)
	}
	return pick(body, "data.block", "{}"), nil
}

// Request returns the data of a recorded query.
func (e *Explorer) Request(ctx context.Context, dbID, hash string) (json.RawMessage, error) {
	body, err := e.get(ctx, e.RequestURL(dbID, hash))
	if err != nil {
		return nil, fmt.Errorf("get request %s: %w", hash, err)
	}
	return pick(body, "data", "{}"), nil
}

// Block returns the data of block height.
func (e *Explorer) Block(ctx context.Context, dbID string, height int64) (json.RawMessage, error) {
	body, err := e.get(ctx, e.BlockURL(dbID, height))
	if err != nil {
		return nil, fmt.Errorf("get block %d: %w", height, err)
	}
	return pick(body, "data", "{}"), nil
}

func (e *Explorer) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxExplorerBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrNetwork, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: explorer returned invalid json", domain.ErrNetwork)
	}
	return body, nil
}

func pick(body []byte, path, fallback string) json.RawMessage {
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return json.RawMessage(fallback)
	}
	return json.RawMessage(res.Raw)
}

// DatabaseID extracts the CovenantSQL database id from a raw forum config:
// the part after "//" of Store.CovenantSQL.Database, or "" when unset.
func DatabaseID(raw json.RawMessage) string {
	dsn := gjson.GetBytes(raw, "Store.CovenantSQL.Database").String()
	_, id, ok := strings.Cut(dsn, "//")
	if !ok {
		return ""
	}
	// Anything after a second "//" is not part of the id.
	id, _, _ = strings.Cut(id, "//")
	return id
}
