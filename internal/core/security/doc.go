// Package security decides whether a shell command may run and whether it
// needs explicit human approval first.
//
// The controller sits between the tool-call boundary and the shell engine:
//
//   - Risk classification: a quote-aware scanner finds command
//     substitution and splits pipelines; every stage is checked against a
//     banned root-command list and a destructive-pattern set. Anything the
//     scanner cannot make sense of is treated as high risk.
//   - Path access control (restricted + readonly paths from the policy).
//   - Shell operator policy (allow_shell) and system-path redirects.
//
// High-risk commands always require approval, even when the policy would
// otherwise auto-approve. The scanner is a heuristic, not a POSIX parser.
package security
