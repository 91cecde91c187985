// Package snapshot implements the per-item workers of the create and validate runs.
//
// A create worker moves one VM through
//
//	Pending -> ScopeReady -> DetailsFetched -> ActionIssued -> Succeeded | Failed
//
// The Pending -> ScopeReady transition belongs to the driver, which switches the
// subscription once per group and calls Process only for items whose scope is active.
// Every other transition is a single az invocation under the runner's retry policy.
// Process always returns exactly one terminal outcome.
package snapshot
