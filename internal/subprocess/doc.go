// Package subprocess supervises the spx-server sidecar process.
//
// A Supervisor holds at most one running sidecar. Launch resolves the binary,
// spawns it with its working directory set to the binary's directory, and
// detaches one reader goroutine per output stream; each reader forwards
// complete lines to an output.Sink until its pipe closes. A reaper goroutine
// waits for the process so that an exit the supervisor did not cause is
// visible through Status and Exited.
//
// Stop is a hard kill (SIGKILL to the process group on Unix), followed by a
// wait for the reaper. Readers are not joined; they end on their own once
// the pipes drain, which Drained reports. A process that exits on its own
// may leave children in its group; they are killed when the exited handle
// is discarded by Stop or the next Launch.
package subprocess
