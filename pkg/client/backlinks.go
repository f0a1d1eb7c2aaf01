package client

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"github.com/Sternrassler/wiki-api-client/pkg/pagination"
)

// continuationKeys are the fields of the "continue" object copied into the next request.
var continuationKeys = []string{"continue", "blcontinue"}

// Backlinks returns the titles of pages linking to title, in upstream order.
//
// Pages are requested with bllimit=limit until at least limit titles were
// collected or upstream stops sending a continuation. The result is NOT
// truncated to limit: the batch that crosses the limit is returned in full,
// so a limit of 10 against a 500-entry first page yields 500 titles. Fewer
// than limit titles is not an error.
//
// A non-positive limit or empty title fails with ErrInvalidArgument before any
// request. Transport and parse failures abort the walk; no partial result is returned.
// A MediaWiki error envelope ({"error": {"code": ..., "info": ...}} with status
// 200) surfaces as a *TransportError of class api, matching ErrTransport, with
// the upstream code and info. A continuation that does not advance surfaces as
// a *ParseError at "continue".
func (c *Client) Backlinks(ctx context.Context, title string, limit int) ([]string, error) {
	if err := validateBacklinkArgs(title, limit); err != nil {
		return nil, err
	}
	titles, err := c.backlinkWalker(title, limit).Collect(ctx)
	if err != nil {
		return nil, walkError(err)
	}
	return titles, nil
}

// BacklinkPages is the lazy form of Backlinks: it yields one batch of titles
// per upstream page, following the same stop rules. Ranging again restarts
// from the first page. Argument errors are yielded before any request.
func (c *Client) BacklinkPages(ctx context.Context, title string, limit int) iter.Seq2[[]string, error] {
	if err := validateBacklinkArgs(title, limit); err != nil {
		return func(yield func([]string, error) bool) {
			yield(nil, err)
		}
	}
	pages := c.backlinkWalker(title, limit).Pages(ctx)
	return func(yield func([]string, error) bool) {
		for batch, err := range pages {
			if err != nil {
				yield(nil, walkError(err))
				return
			}
			if !yield(batch, nil) {
				return
			}
		}
	}
}

// walkError reports a stalled continuation as a ParseError; other errors pass through.
func walkError(err error) error {
	if errors.Is(err, pagination.ErrStalled) {
		return newParseError("query", "continue", "repeated token", err)
	}
	return err
}

func validateBacklinkArgs(title string, limit int) error {
	if limit < 1 {
		return fmt.Errorf("%w: limit must be a positive integer (got %d)", ErrInvalidArgument, limit)
	}
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	return nil
}

func (c *Client) backlinkWalker(title string, limit int) *pagination.Walker[string] {
	fetch := func(ctx context.Context, cont pagination.Continuation) (pagination.Page[string], error) {
		params := url.Values{}
		params.Set("action", "query")
		params.Set("list", "backlinks")
		params.Set("bltitle", title)
		params.Set("bllimit", strconv.Itoa(limit))
		for key, value := range cont {
			params.Set(key, value)
		}

		doc, err := c.get(ctx, params)
		if err != nil {
			return pagination.Page[string]{}, err
		}
		return parseBacklinks(doc)
	}

	return pagination.NewWalker[string](pagination.FetcherFunc[string](fetch), pagination.Config{
		Limit: limit,
		Name:  "backlinks",
	})
}

// parseBacklinks extracts query.backlinks[].title and the continuation, if any.
func parseBacklinks(doc map[string]any) (pagination.Page[string], error) {
	query, ok := doc["query"].(map[string]any)
	if !ok {
		return pagination.Page[string]{}, shapeError("query", "missing or not an object")
	}

	entries, ok := query["backlinks"].([]any)
	if !ok {
		return pagination.Page[string]{}, shapeError("query.backlinks", "missing or not an array")
	}

	titles := make([]string, 0, len(entries))
	for i, entry := range entries {
		link, ok := entry.(map[string]any)
		if !ok {
			return pagination.Page[string]{}, shapeError(fmt.Sprintf("query.backlinks[%d]", i), "not an object")
		}
		title, ok := link["title"].(string)
		if !ok {
			return pagination.Page[string]{}, shapeError(fmt.Sprintf("query.backlinks[%d].title", i), "missing or not a string")
		}
		titles = append(titles, title)
	}

	page := pagination.Page[string]{Items: titles}

	raw, present := doc["continue"]
	if !present {
		return page, nil
	}

	cont, ok := raw.(map[string]any)
	if !ok {
		return pagination.Page[string]{}, shapeError("continue", "not an object")
	}

	next := make(pagination.Continuation, len(continuationKeys))
	for _, key := range continuationKeys {
		value, ok := cont[key].(string)
		if !ok {
			return pagination.Page[string]{}, shapeError("continue."+key, "missing or not a string")
		}
		next[key] = value
	}
	page.Next = next

	return page, nil
}

func shapeError(path, msg string) *ParseError {
	return newParseError("query", path, msg, nil)
}
