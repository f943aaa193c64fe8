// Package preflight provides readiness checks for external services
// and filesystem paths that soundcheck depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunFeatureChecks before processing each
//     queue item. If any check fails, the lane halts instead of burning
//     a download on a doomed run.
//   - The CLI "soundcheck daemon status" command uses individual check
//     functions (CheckNtfy, CheckDirectoryAccess) to display service health.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
