// Package mutation applies account changes to the record store and
// publishes the matching change events.
//
// Every mutation runs the same four steps in order:
//
//  1. validate the request against the current account state
//  2. apply the change to the store
//  3. publish one event per affected topic
//  4. return the post-mutation records
//
// A subscriber woken in step 3 that re-reads the store always sees the
// state the event describes. A request rejected in step 1 writes nothing
// and publishes nothing.
//
// Validate and apply run under one coordinator lock, so validation always
// sees the state it applies against.
package mutation
