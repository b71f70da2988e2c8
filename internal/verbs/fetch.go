package verbs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vk/wrangler/internal/ctxlog"
	"github.com/vk/wrangler/internal/table"
	"github.com/vk/wrangler/internal/tableio"
)

// FetchModule registers the fetch verb. Client defaults to an http.Client
// with a 30 second timeout.
type FetchModule struct {
	Client *http.Client
}

func (m *FetchModule) Register(r *Registry) {
	client := m.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	r.Register(&Descriptor{
		Verb:    Fetch,
		Async:   true,
		NewArgs: argsOf(FetchArgs{}),
		Fn: typed(func(ctx context.Context, _ Input, a *FetchArgs) (*table.Table, error) {
			return fetch(ctx, client, a)
		}),
	})
}

func fetch(ctx context.Context, client *http.Client, a *FetchArgs) (*table.Table, error) {
	logger := ctxlog.FromContext(ctx).With("verb", Fetch, "url", a.URL)
	if a.URL == "" {
		return nil, fmt.Errorf("%w: fetch requires 'url'", ErrInvalidArgs)
	}
	u, err := url.Parse(a.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	logger.Debugw("Fetching table.")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", a.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", a.URL, resp.Status)
	}

	format, err := tableio.FormatOf(u.Path)
	if err != nil {
		format = tableio.CSV
		if strings.Contains(resp.Header.Get("Content-Type"), "json") {
			format = tableio.JSON
		}
	}
	t, err := tableio.Read(resp.Body, format, tableio.Options{Delimiter: a.Delimiter, MaxRows: a.AutoMax})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", a.URL, err)
	}
	logger.Debugw("Fetched table.", "rows", t.NumRows(), "columns", t.NumCols())
	return t, nil
}
