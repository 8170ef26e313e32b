// Package giterror inspects errors produced while talking to the GitHub REST
// API. It turns low-level network failures into a TransportKind, decides
// whether a failure is worth retrying, and produces short actionable hints for
// the command layer to print next to an error.
package giterror
