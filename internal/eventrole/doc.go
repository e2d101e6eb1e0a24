// Package eventrole materializes one custom role per guild scheduled event.
//
// The persisted record is the single source of truth for "already
// processed": Resolve always consults it before any role-creation side
// effect, so repeated invocations for the same event are idempotent.
package eventrole
