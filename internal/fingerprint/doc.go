// Package fingerprint computes content identities for media files.
//
// Small files are hashed in full. Files at or above LargeFileThreshold are
// sampled: the first, middle, and last window plus the decimal size are fed
// into a single SHA-256 digest. Two large files that agree on all sampled
// regions and on size therefore share a fingerprint even when unsampled
// bytes differ; callers accept that in exchange for bounded I/O.
package fingerprint
