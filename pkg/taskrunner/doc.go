// Package taskrunner provides sequenced execution contexts. A Runner owns a
// single goroutine that executes posted tasks strictly in posting order, one
// at a time, and keeps delayed tasks in a min-heap keyed by their due time.
//
// The cookie store runs on two Runners: a "client" sequence, on which the
// cookie jar calls in and completion callbacks are delivered, and a
// "background" sequence, which alone touches the database.
package taskrunner
