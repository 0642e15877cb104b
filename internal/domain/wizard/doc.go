// Package wizard contains the trade-in wizard bounded context.
// It owns the step sequence, the per-step data and the final report figures.
//
// Key concepts:
//   - Step: one stage of the linear wizard, ending at the terminal Report step
//   - State: the serializable accumulation of confirmed step outputs plus the cursor
//   - Advance/Retreat: pure reducers that return a new State or reject the transition
//   - VehicleForm: the two-phase vehicle identification sub-protocol
//   - Report: the valuation summary computed from a completed State
package wizard
