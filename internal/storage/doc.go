// Package storage persists the event-to-role records.
//
// A record links a guild scheduled event to the custom role created for it.
// Records are write-once: there is deliberately no update or delete path, so
// a role id can never be silently rebound to a different event.
package storage
