// Package transfer implements the resilient channel used to move guarded
// map snapshots across process or machine boundaries.
//
// Every payload travels inside a checksummed envelope. Operations run
// under a deadline and a classified retry policy: transient transport
// failures are retried with linear backoff, everything else fails fast.
// An optional rate limiter and authenticated encryption sit between the
// codec and the wire.
package transfer
