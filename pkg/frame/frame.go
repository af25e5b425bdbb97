// Package frame turns capture driver buffers into the image representation that
// the inference engine consumes.
//
// Nothing in this package copies pixels. A Frame aliases the driver's buffer, and
// an Image aliases the Frame, so neither may be used after the driver buffer has
// been released.
package frame

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidFormat     = errors.New("Invalid frame format")
	ErrInvalidDimensions = errors.New("Invalid frame dimensions")
	ErrInvalidSize       = errors.New("Invalid frame size")
	ErrInvalidData       = errors.New("Invalid frame data")
)

// PixelFormat is the canonical pixel encoding of a Frame
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	FormatRGB888
	FormatRGB565
	FormatGray8
	FormatJPEG
)

func (f PixelFormat) String() string {
	switch f {
	case FormatRGB888:
		return "RGB888"
	case FormatRGB565:
		return "RGB565"
	case FormatGray8:
		return "GRAY8"
	case FormatJPEG:
		return "JPEG"
	}
	return "UNKNOWN"
}

// BytesPerPixel returns 0 for compressed or unknown formats
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatRGB888:
		return 3
	case FormatRGB565:
		return 2
	case FormatGray8:
		return 1
	}
	return 0
}

// Frame is a single captured image.
// Data is borrowed from the capture source, and Size is the number of valid bytes
// that the source reported.
type Frame struct {
	Format      PixelFormat
	Width       int
	Height      int
	Orientation int // Clockwise rotation in degrees: 0, 90, 180 or 270
	Timestamp   time.Time
	Size        uint32
	Data        []byte
	TraceID     string // Carried over from the capture buffer, for logs. Optional.
}

// Validate checks the frame invariants, in the same order that an invocation reports them
func (f *Frame) Validate() error {
	if f.Format == FormatUnknown {
		return ErrInvalidFormat
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w (%v x %v)", ErrInvalidDimensions, f.Width, f.Height)
	}
	if f.Size == 0 {
		return ErrInvalidSize
	}
	if f.Data == nil {
		return ErrInvalidData
	}
	return nil
}

func (f *Frame) String() string {
	return fmt.Sprintf("%v %vx%v rot %v, %v bytes", f.Format, f.Width, f.Height, f.Orientation, f.Size)
}

// Rotation is the engine's representation of frame orientation
type Rotation int

const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// Degrees returns the clockwise rotation in degrees
func (r Rotation) Degrees() int {
	return int(r) * 90
}

// RotationFromDegrees maps an orientation to a Rotation. Anything other than
// 0, 90, 180 or 270 is treated as 0.
func RotationFromDegrees(deg int) Rotation {
	switch deg {
	case 90:
		return Rotate90
	case 180:
		return Rotate180
	case 270:
		return Rotate270
	}
	return Rotate0
}

// Image is the canonical image handed to the inference engine
type Image struct {
	Width       int
	Height      int
	Format      PixelFormat
	Rotation    Rotation
	TimestampMs int64 // Capture time, in milliseconds since the unix epoch
	Size        uint32
	Data        []byte
}

// ToImage builds the engine image. The result aliases f.Data.
func (f *Frame) ToImage() Image {
	return Image{
		Width:       f.Width,
		Height:      f.Height,
		Format:      f.Format,
		Rotation:    RotationFromDegrees(f.Orientation),
		TimestampMs: timestampMs(f.Timestamp),
		Size:        f.Size,
		Data:        f.Data,
	}
}

// A zero time maps to 0, as an unset timeval would on the device
func timestampMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
