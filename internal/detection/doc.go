// Package detection provides the low-level vision primitives the grading
// stages are built from.
//
// # Binary Images
//
// Functions in this package work on *image.Gray values whose bounds start at
// (0,0). Binary images use 255 for foreground (ink or edge) and 0 for
// background. Every function returns a new image and leaves its input intact.
//
// # Thresholding
//
//   - OtsuLevel picks a global threshold from the image histogram.
//   - ThresholdInv marks pixels at or below a level as ink.
//   - AdaptiveThresholdInv compares each pixel with the mean of its
//     neighborhood, which copes with shadows across a photographed sheet.
//   - Binarize chooses between the two according to config.Binarize.
//   - Open removes isolated specks with an erosion followed by a dilation.
//
// # Components and Contours
//
// FindComponents labels 8-connected foreground regions with an explicit-stack
// flood fill. TraceBoundary walks the outer boundary of a region (Moore
// neighbor tracing) and FindContours combines the two, returning contours
// sorted by enclosed area.
//
// # Shape Metrics
//
//   - ContourArea: shoelace area through boundary pixel centers
//   - ArcLength: closed chain length, diagonal steps counting √2
//   - Circularity: 4πA/P², 1.0 for a circle and about 0.785 for a square
//   - Solidity: area over convex hull area, near 1.0 for filled convex blobs
//
// Answer bubbles are recognized by requiring all three to fall in configured
// ranges.
package detection
