// Package delivery sends a project's documents to the customer who ordered
// it.
//
// The Orchestrator gates every send on email readiness, resolves which
// documents are eligible for the selected review stages, hands them to the
// email Composer, and records a short-lived per-order status on a
// StatusBoard. Batches run the same path one order at a time.
package delivery
