// Package fileutil holds filesystem helpers for placing files into batch
// folders: a metadata-preserving copy and free-space/writability probes.
package fileutil
