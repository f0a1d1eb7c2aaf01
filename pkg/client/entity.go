package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
)

// EntityData fetches the wbgetentities payload for id (e.g. "Q5", "P569")
// with English labels and returns the decoded body unchanged.
//
// Nothing about the body is interpreted: a MediaWiki error envelope such as
// {"error":{"code":"no-such-entity",...}} is returned as data, not as an error.
// Any JSON value is accepted, and numbers decode as json.Number so that
// re-encoding reproduces them exactly. Only network failures, non-2xx statuses
// (TransportError) and undecodable bodies (ParseError) fail.
func (c *Client) EntityData(ctx context.Context, id string) (any, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: entity id is required", ErrInvalidArgument)
	}

	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", id)
	params.Set("languages", "en")

	body, _, err := c.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	return decodeValue("wbgetentities", body)
}

// decodeValue decodes exactly one JSON value of any kind.
func decodeValue(action string, body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, newParseError(action, "$", "invalid JSON", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, newParseError(action, "$", "unexpected data after JSON value", err)
	}
	return v, nil
}
