package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"xcri-import/internal/domain"
	"xcri-import/internal/httpx"
)

const contentTypeJSON = "application/json"

// Client submits documents to one Solr core through its JSON update handler.
type Client struct {
	BaseURL string // e.g. http://localhost:8983/solr
	Core    string
	HTTP    *http.Client
	Retry   httpx.RetryConfig
}

func New(baseURL, core string) *Client {
	tr := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Core:    core,
		HTTP: &http.Client{
			Timeout:   5 * time.Minute,
			Transport: tr,
		},
		Retry: httpx.DefaultRetryConfig(),
	}
}

type updateResponse struct {
	ResponseHeader struct {
		Status int `json:"status"`
		QTime  int `json:"QTime"`
	} `json:"responseHeader"`
	Error *struct {
		Msg  string `json:"msg"`
		Code int    `json:"code"`
	} `json:"error,omitempty"`
}

func (c *Client) updateURL(commit bool) (string, error) {
	u, err := url.Parse(c.BaseURL + "/" + url.PathEscape(c.Core) + "/update")
	if err != nil {
		return "", fmt.Errorf("solr: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("wt", "json")
	if commit {
		q.Set("commit", "true")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Index adds or replaces docs. Solr upserts on the schema's uniqueKey, which
// must be presentation_identifier.
func (c *Client) Index(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("solr: marshal documents: %w", err)
	}
	if err := c.post(ctx, false, b); err != nil {
		return fmt.Errorf("solr: index %d documents: %w", len(docs), err)
	}
	return nil
}

// Commit makes everything submitted so far searchable.
func (c *Client) Commit(ctx context.Context) error {
	if err := c.post(ctx, true, []byte(`{"commit":{}}`)); err != nil {
		return fmt.Errorf("solr: commit: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, commit bool, body []byte) error {
	endpoint, err := c.updateURL(commit)
	if err != nil {
		return err
	}

	var out updateResponse
	err = httpx.DoJSON(
		ctx,
		c.HTTP,
		func(ctx context.Context) (*http.Request, error) {
			r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			r.Header.Set("Content-Type", contentTypeJSON)
			r.Header.Set("Accept", contentTypeJSON)
			return r, nil
		},
		&out,
		c.Retry,
	)
	if err != nil {
		return err
	}
	if out.Error != nil {
		return fmt.Errorf("%s (code %d)", out.Error.Msg, out.Error.Code)
	}
	if out.ResponseHeader.Status != 0 {
		return fmt.Errorf("update status %d", out.ResponseHeader.Status)
	}
	return nil
}
