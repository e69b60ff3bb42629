package pager

import (
	"fmt"

	"github.com/roach88/acctql/internal/model"
)

// Args are the optional pagination arguments. Nil means absent.
type Args struct {
	First  *int    `json:"first,omitempty"`
	After  *string `json:"after,omitempty"`
	Last   *int    `json:"last,omitempty"`
	Before *string `json:"before,omitempty"`
}

// ArgsError reports pagination arguments outside their domain.
type ArgsError struct {
	Field string
	Value int
}

// Error implements the error interface.
func (e *ArgsError) Error() string {
	return fmt.Sprintf("%s must be non-negative, got %d", e.Field, e.Value)
}

// Validate rejects negative first or last. Cursors are not checked here:
// a malformed cursor is treated as the end of the collection.
func (a Args) Validate() error {
	if a.First != nil && *a.First < 0 {
		return &ArgsError{Field: "first", Value: *a.First}
	}
	if a.Last != nil && *a.Last < 0 {
		return &ArgsError{Field: "last", Value: *a.Last}
	}
	return nil
}

// Edge pairs a node with its cursor.
type Edge[T any] struct {
	Cursor string `json:"cursor"`
	Node   T      `json:"node"`
}

// PageInfo describes the position of a page within its collection.
type PageInfo struct {
	HasNextPage     bool    `json:"has_next_page"`
	HasPreviousPage bool    `json:"has_previous_page"`
	StartCursor     *string `json:"start_cursor"`
	EndCursor       *string `json:"end_cursor"`
}

// Connection is one page of a collection.
type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"page_info"`

	// TotalCount is the size of the whole collection, not of the page.
	TotalCount int `json:"total_count"`
}

// Nodes returns the page nodes in edge order.
func (c Connection[T]) Nodes() []T {
	out := make([]T, len(c.Edges))
	for i, e := range c.Edges {
		out[i] = e.Node
	}
	return out
}

// Paginate slices items according to args.
//
// Steps, in order:
//  1. after: drop everything up to and including the cursor's element;
//     sets HasPreviousPage when the element was found.
//  2. before: keep only elements strictly preceding the cursor's element;
//     sets HasNextPage when the element was found.
//  3. first: HasNextPage is reassigned to whether more than first remain,
//     overriding step 2; keep the first elements.
//  4. last: HasPreviousPage becomes true; keep the last elements.
//
// An undecodable or unmatched cursor empties the window. Negative first
// or last count as zero; use Args.Validate to reject them up front.
func Paginate[T any](items []T, keyOf func(T) model.Key, args Args) Connection[T] {
	var info PageInfo
	window := items

	if args.After != nil {
		idx := indexOf(window, keyOf, *args.After)
		if idx < 0 {
			window = nil
		} else {
			window = window[idx+1:]
			info.HasPreviousPage = true
		}
	}

	if args.Before != nil {
		idx := indexOf(window, keyOf, *args.Before)
		if idx < 0 {
			window = nil
		} else {
			window = window[:idx]
			info.HasNextPage = true
		}
	}

	if args.First != nil {
		first := max(*args.First, 0)
		info.HasNextPage = len(window) > first
		if info.HasNextPage {
			window = window[:first]
		}
	}

	if args.Last != nil {
		last := max(*args.Last, 0)
		info.HasPreviousPage = true
		if len(window) > last {
			window = window[len(window)-last:]
		}
	}

	edges := make([]Edge[T], len(window))
	for i, item := range window {
		edges[i] = Edge[T]{Cursor: EncodeCursor(keyOf(item)), Node: item}
	}
	if len(edges) > 0 {
		start := edges[0].Cursor
		end := edges[len(edges)-1].Cursor
		info.StartCursor = &start
		info.EndCursor = &end
	}

	return Connection[T]{
		Edges:      edges,
		PageInfo:   info,
		TotalCount: len(items),
	}
}

// indexOf returns the position of the cursor's key in items, or -1 when
// the cursor is invalid or its key is not present.
func indexOf[T any](items []T, keyOf func(T) model.Key, cursor string) int {
	key, err := DecodeCursor(cursor)
	if err != nil {
		return -1
	}
	for i, item := range items {
		if keyOf(item) == key {
			return i
		}
	}
	return -1
}

// Int returns a pointer to n, for building Args literals.
func Int(n int) *int {
	return &n
}

// String returns a pointer to s, for building Args literals.
func String(s string) *string {
	return &s
}
