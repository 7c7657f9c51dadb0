// Package pagination reconciles the artworks API's fixed remote page size
// with the grid's display window.
//
// Two operations share one owned State:
//
//   - Loader.LoadPage fetches the remote page behind a display window and
//     replaces (or, when rows are still needed, appends to) the displayed
//     records.
//   - BulkFetcher.CollectFirstN crawls remote pages from page 1 until N
//     records are accumulated or the source runs dry, then replaces the
//     displayed records and selects the first N.
//
// Fetches inside one operation are strictly sequential: each continuation
// decision depends on the page just received.
//
// Example usage:
//
//	st := pagination.NewState()
//	loader := pagination.NewLoader(apiClient, pagination.DefaultConfig())
//	if err := loader.LoadPage(ctx, st, 1, 0); err != nil {
//		// logged already; st keeps its previous content
//	}
//
//	bulk := pagination.NewBulkFetcher(apiClient, pagination.DefaultConfig())
//	err := bulk.CollectFirstN(ctx, st, 25)
//
// Every operation takes a generation token from State.Begin. Starting a new
// operation invalidates the token of the previous one, and writes carrying
// a stale token are dropped with ErrSuperseded, so the most recent trigger
// always owns the display.
package pagination
