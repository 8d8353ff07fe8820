// Package storage persists the delivery audit trail.
//
// Every delivery attempt the channel adapter makes (sent, failed or
// skipped) can be appended here and listed back newest first. It is a
// record of what happened, not a retry queue.
package storage
