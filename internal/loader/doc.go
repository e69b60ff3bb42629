// Package loader implements a per-request deduplicating batch loader.
//
// A Loader collects keys issued through Load and LoadMany into a pending
// batch and resolves them with one call to the BatchFunc supplied at
// construction. Results are handed back by position, so the BatchFunc must
// return exactly one value per key, in key order, duplicates included.
//
// # Batch Window
//
// The collection phase is explicit. A pending batch is dispatched when
// one of the following happens, whichever comes first:
//   - Flush is called
//   - the WithWait window elapses (timer armed by the first key of a batch)
//   - the batch reaches WithMaxBatch keys
//   - Get is called on a pending Thunk and no wait window is configured
//
// Once dispatched, a batch runs to completion. A caller whose context is
// cancelled stops waiting but does not abort the fetch for other callers.
//
// # Caching
//
// Each Loader owns a key→value cache populated by successful batches.
// Loaders are built fresh for every request and discarded with it; there is
// no process-wide cache. Absent records (zero values) are cached like any
// other result. Failed batches cache nothing.
package loader
