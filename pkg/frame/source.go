package frame

import "time"

// SourceFormat is the pixel format tag reported by the camera driver.
// The values match the ESP32 camera driver's pixformat_t.
type SourceFormat int

const (
	SourceRGB565 SourceFormat = iota
	SourceYUV422
	SourceYUV420
	SourceGrayscale
	SourceJPEG
	SourceRGB888
	SourceRAW
	SourceRGB444
	SourceRGB555
)

// SourceBuffer is a frame buffer as the capture driver hands it out.
// The driver owns Data until the buffer is returned to it.
type SourceBuffer struct {
	Format    SourceFormat
	Width     int
	Height    int
	Timestamp time.Time
	Len       uint32
	Data      []byte
	TraceID   string // Identifies the buffer in logs. Optional.
}

// CanonicalFormat maps a driver pixel format onto one of ours
func CanonicalFormat(f SourceFormat) PixelFormat {
	switch f {
	case SourceRGB888:
		return FormatRGB888
	case SourceRGB565:
		return FormatRGB565
	case SourceGrayscale:
		return FormatGray8
	case SourceJPEG:
		return FormatJPEG
	}
	return FormatUnknown
}

// Normalize wraps a driver buffer as a Frame, with orientation 0.
// Unsupported driver formats produce FormatUnknown, which Validate rejects.
// A nil buffer produces a zero Frame.
func Normalize(src *SourceBuffer) Frame {
	return NormalizeRotated(src, 0)
}

// NormalizeRotated is Normalize with an explicit orientation in degrees
func NormalizeRotated(src *SourceBuffer, orientation int) Frame {
	if src == nil || src.Data == nil {
		return Frame{}
	}
	return Frame{
		Format:      CanonicalFormat(src.Format),
		Width:       src.Width,
		Height:      src.Height,
		Orientation: orientation,
		Timestamp:   src.Timestamp,
		Size:        src.Len,
		Data:        src.Data,
		TraceID:     src.TraceID,
	}
}
