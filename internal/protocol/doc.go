// Package protocol decodes the output of a retrace child process.
//
// A finished run leaves two buffers behind. Stdout carries exactly one payload
// shape, chosen by the requested replay.Mode and never sniffed from content:
//   - ModeState: a single JSON object (the captured GL state)
//   - ModeSnapshots: zero or more back-to-back PNM records (P5 gray / P6 RGB)
//   - ModePlain: free UTF-8 text, used verbatim as the run summary
//
// Stderr is line oriented. Lines shaped like "<call>: <kind>: <message>" become
// ReplayError records; everything else is noise and is dropped.
package protocol
