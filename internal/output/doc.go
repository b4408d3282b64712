// Package output defines the sidecar output line type and the sinks that
// receive it.
//
// Output is opaque text: the launcher never parses sidecar log content. A
// sink is handed each line exactly once, from the reader goroutine of the
// stream it came from.
package output
