// Package preflight provides readiness checks for the collaborators and
// filesystem paths that recipeforge depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failed check as a
//     warning. Failures never block startup because jobs fail individually.
//   - The CLI "recipeforge status" command renders the same results as its
//     System Checks section.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
