// Package assignqueue grants event subscriber roles asynchronously.
//
// Enqueue is fire-and-forget and Kick is a coalescing "work may be ready"
// signal; role creation never waits on a grant. The queue is not durable:
// dropped or lost assignments are re-discovered by the reconciliation pass.
package assignqueue
