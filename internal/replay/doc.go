// Package replay describes a single retrace run and turns it into a command line.
//
// An Options value says which API wrapper to run (glretrace or eglretrace), which
// trace to replay and in which mode:
//   - plain replay (optionally benchmarking with -b)
//   - state capture at a call index (-D <call>), JSON on stdout
//   - snapshot capture (-s -), PNM frames on stdout
//
// Capture modes suppress benchmarking; they are never combined with -b.
package replay
