// Package imaging provides the raster plumbing shared by the grading stages.
//
// This package decodes answer sheet photographs and scans, converts between
// color and grayscale representations, detects edges, and produces encoded
// or on-disk images for inspection. It holds no grading logic of its own.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Functions that create new
// images rebase them so Bounds().Min is (0,0).
//
// # Decoding
//
// Decode accepts PNG, JPEG, GIF, BMP, TIFF and WebP. EXIF orientation is
// applied during decoding, so a phone photo taken in portrait arrives upright.
// Every decoded sheet carries an ID derived from the SHA-256 of its bytes.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and return freshly allocated images; inputs are never modified.
//
// # Debug Artifacts
//
// SaveArtifact writes intermediate stages (rectified, enhanced, binary,
// overlay) to a directory when a caller asks for them. DrawBoxes and
// DrawPolyline build the overlay.
package imaging
