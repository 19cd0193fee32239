package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Remote is a datasource that GETs one URL.
type Remote struct {
	client  *Client
	url     string
	headers http.Header
}

// NewRemote binds url to client. headers are sent with every request.
func NewRemote(client *Client, url string, headers http.Header) *Remote {
	return &Remote{client: client, url: url, headers: headers}
}

// Open issues the GET and returns the response body. Statuses outside 2xx
// are errors.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := r.client.Get(ctx, r.url, r.headers)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("get %s: unexpected status %d", r.url, resp.StatusCode)
	}
	return resp.Body, nil
}

// URL returns the bound URL.
func (r *Remote) URL() string { return r.url }
