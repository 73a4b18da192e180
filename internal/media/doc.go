// Package media classifies files by extension and extracts descriptive
// metadata.
//
// Classifier maps extensions to image, video, or unknown and supplies the
// default task code for each kind. Probe implements Extractor: stills are
// decoded with imaging (dimensions after EXIF orientation), video is
// inspected with ffprobe. Probe failures are recorded on the result rather
// than returned, so a missing decoder never blocks ingest.
package media
