// Package pagination follows MediaWiki-style continuation across a paginated list.
//
// The Action API returns a "continue" object with every page that has a
// successor. Its fields must be sent back verbatim with the next request.
// A Walker issues one request at a time, hands each page to the caller, and
// stops when enough items were produced or upstream stops sending a
// continuation.
//
// Example usage:
//
//	walker := pagination.NewWalker[string](fetcher, pagination.Config{
//		Limit: 5000,
//		Name:  "backlinks",
//	})
//	titles, err := walker.Collect(ctx)
//
// Or lazily, one page at a time:
//
//	for batch, err := range walker.Pages(ctx) {
//		if err != nil {
//			return err
//		}
//		process(batch)
//	}
//
// The walker:
//   - Never truncates: the page that crosses Limit is returned whole
//   - Never overlaps requests
//   - Fails with ErrStalled if upstream repeats the continuation it was sent
//   - Returns no partial results from Collect on error
package pagination
