// Package imaging loads, converts and saves the images handled by boxfilter.
//
// All file access goes through a Codecs context. The context is acquired once
// per run with OpenCodecs and released with Close; Load and Save fail with
// ErrCodecsClosed once it has been released.
//
// # Supported Formats
//
// Decoding is driven by the file signature, not the extension:
//   - PNG, GIF, JPEG (standard library)
//   - BMP, TIFF, WebP (golang.org/x/image)
//   - PBM, PGM, PPM (github.com/jbuchbinder/gopnm)
//
// Encoding is driven by the output extension and is limited to lossless
// codecs: .png, .bmp, .tif/.tiff and .pgm.
//
// # Grayscale Conversion
//
// ToGray reduces any supported color encoding to 8-bit grayscale. Images that
// are already *image.Gray are returned as-is, without a copy. Color images are
// reduced with Rec. 709 luma weights by default (BT.601 weights and CIE
// lightness are also available).
//
// # Error Handling
//
// Failures are reported with sentinel errors that callers test with errors.Is:
//   - ErrFileNotFound: the input path is missing, a directory, or unreadable
//   - ErrUnsupportedFormat: no decoder recognizes the data, or the decoded
//     color encoding cannot be reduced to grayscale
//   - ErrEncode: the output extension has no lossless encoder, or writing failed
//   - ErrCodecsClosed: the Codecs context was used after Close
package imaging
