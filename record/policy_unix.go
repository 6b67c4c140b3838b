//go:build !windows

package record

// metaChangeAloneMovesFile resolves the spec's Open Question on the
// build-time metadata-comparison policy: on every platform except
// Windows, a bare permission-bit change is enough by itself to force the
// move/rename algebra to delete and re-assert folder edges, matching
// libpijul's `cfg!(unix)` branch.
const metaChangeAloneMovesFile = true
