// Package shutdown coordinates graceful process termination.
//
// A Handler waits for SIGINT or SIGTERM (or a programmatic Trigger) and
// runs registered cleanup hooks in reverse registration order under a
// deadline.
package shutdown
