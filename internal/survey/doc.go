// Package survey is the response engine of the resilience questionnaire.
//
// It owns the per-mode response state and the two pure derivations computed
// from it on every read:
//
//   - Validity: a pair is valid when its two sides sum to at most [MaxPoints].
//     Invalid pairs are flagged but never clamped, and they still count
//     toward totals and exports.
//   - Totals: each section's left components sum into one named total and
//     its right components into the other, giving Defensive, Progressive,
//     Consistent and Flexible.
//
// Nothing derived is stored. [Store] keeps only allocations, so validity and
// totals cannot drift from the responses they describe.
//
// # Modes
//
// Responses are kept twice, once for the current state ([ModeAsIs]) and once
// for the target state ([ModeToBe]). Resetting one mode leaves the other
// untouched; the two are combined only by the dual-mode export.
package survey
