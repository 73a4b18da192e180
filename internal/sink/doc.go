// Package sink delivers processed files to downstream consumers.
//
// The pipeline depends only on the Sink interface. New assembles the
// configured targets: a JSON-lines manifest written beside each batch and an
// optional webhook that receives one JSON POST per file. With nothing
// configured a no-op sink is returned so callers never nil-check.
package sink
