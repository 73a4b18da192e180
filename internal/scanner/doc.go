// Package scanner enumerates candidate media files and explains why each
// excluded file was excluded.
//
// Scan walks a directory (optionally recursively), keeps files whose
// extension is a configured image or video type, and when asked consults a
// ProcessedChecker to drop files already handled. A missing directory is an
// empty result, not an error. Each eligible record carries a best-effort
// sequence and shot guess taken from folder and file names for display only.
package scanner
