// Package harness runs protocol conformance scenarios against the
// controller.
//
// A scenario is a YAML file holding an inline workflow spec and an
// ordered list of tool turns (validate, plan, step_done, audit). The
// harness executes the turns against a fresh controller, checks each
// turn's expectations, and snapshots the full transcript for golden
// comparison.
//
// # Scenario format
//
//	name: retry_then_pass
//	description: "A failing ensure triggers a retry of the same step"
//	spec: |
//	  version: "0.1"
//	  ...
//	turns:
//	  - tool: plan
//	    flow: review
//	    inputs: {doc: essay}
//	    expect_status: execute_step
//	    expect_step: check
//	  - tool: step_done
//	    step: check
//	    result: {score: 0.4}
//	    expect_status: ensure_failed
//
// step_done and audit turns target the most recently planned flow
// unless flow_id overrides it. Turns that the controller rejects
// produce the translated error envelope in the transcript; expect_error
// asserts on its error_type slug.
//
// # Determinism
//
// Every run uses a frozen clock and sequential flow ids, so timestamps
// collapse to the epoch, durations to zero, and transcripts are
// byte-stable: one canonical JSON line per turn. Golden files live in
// testdata/golden; regenerate with
//
//	go test ./internal/harness -update
package harness
