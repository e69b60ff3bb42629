// Package pager turns an ordered in-memory collection into a cursor
// connection: edges, page info and the total count.
//
// Filters apply in a fixed order: after, before, first, last. Both
// forward (first/after) and backward (last/before) traversal are
// supported, and supplying first and last together applies both cuts in
// that order.
//
// A cursor that cannot be decoded, or that names a key not present in the
// remaining window, denotes the end of the collection: the window becomes
// empty. Pagination never reports an error for a bad cursor and never
// modifies the source slice.
package pager
