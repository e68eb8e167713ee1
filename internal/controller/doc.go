// Package controller owns the authoritative flow execution state.
//
// One Controller holds the registry of live flow states. Every operation
// takes a single process-wide lock for its full duration, matching the
// strictly serial protocol handling of the stdio transport: one request,
// one state mutation, one response. The controller never initiates
// anything; every state advance is triggered by an incoming request.
//
// Per-flow lifecycle:
//
//	plan → dispatching → awaiting_result → [retry | advance] → completed | failed
//
// Terminated flows are retained for audit queries. The registry is
// bounded (WithMaxFlows); when a new plan would exceed the bound, the
// oldest terminated flow is evicted, and if every retained flow is still
// live the plan is refused.
//
// INVARIANTS:
//   - the cursor advances monotonically; a retry does not advance it
//   - step outputs hold exactly the set of completed steps
//   - attempts for a step never exceed its function's retries + 1
//   - once a flow is completed or failed, only audit reads touch it
package controller
