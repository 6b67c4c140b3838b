//go:build windows

package record

// metaChangeAloneMovesFile is false on Windows: in collectMovedEdges a
// metadata change on a live name never by itself forces that name's folder
// edges to be deleted and re-asserted; it still blocks resurrecting a
// deleted name as is. This matches libpijul's `cfg!(windows)` branch.
const metaChangeAloneMovesFile = false
