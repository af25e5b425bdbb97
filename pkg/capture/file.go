package capture

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/microcore/pkg/frame"
	"github.com/google/uuid"
)

var ErrSourceExhausted = errors.New("No more frames in source")

// FileSource plays a list of JPEG files as though they came from a camera.
//
// By default the JPEG bytes are handed out as-is, the way a camera in JPEG mode
// would. With Decode set, each file is decompressed to RGB888 (or GRAY8 for
// single channel images) first.
type FileSource struct {
	Log    logs.Log // Optional
	Files  []string
	Decode bool
	Loop   bool // Restart from the first file after the last one

	next        int
	outstanding int
}

func NewFileSource(log logs.Log, files ...string) *FileSource {
	return &FileSource{
		Log:   log,
		Files: files,
	}
}

// Outstanding returns the number of buffers that have been acquired but not released
func (s *FileSource) Outstanding() int {
	return s.outstanding
}

func (s *FileSource) Acquire() (*frame.SourceBuffer, error) {
	if s.next >= len(s.Files) {
		if !s.Loop || len(s.Files) == 0 {
			return nil, ErrSourceExhausted
		}
		s.next = 0
	}
	filename := s.Files[s.next]
	s.next++

	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	img, err := cimg.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("Failed to decode %v: %w", filename, err)
	}

	buf := &frame.SourceBuffer{
		Format:    frame.SourceJPEG,
		Width:     img.Width,
		Height:    img.Height,
		Timestamp: time.Now(),
		Data:      raw,
		TraceID:   uuid.New().String(),
	}
	if s.Decode {
		buf.Format, buf.Data = packPixels(img)
	}
	buf.Len = uint32(len(buf.Data))

	s.outstanding++
	if s.Log != nil {
		s.Log.Debugf("Acquired %v (%v x %v, %v bytes, trace %v)", filename, buf.Width, buf.Height, buf.Len, buf.TraceID)
	}
	return buf, nil
}

func (s *FileSource) Release(buf *frame.SourceBuffer) {
	if buf == nil {
		return
	}
	s.outstanding--
	buf.Data = nil
}

// Returns tightly packed pixels, in the driver format that matches the image
func packPixels(img *cimg.Image) (frame.SourceFormat, []byte) {
	if img.NChan() != 1 && img.NChan() != 3 {
		img = img.ToRGB()
	}
	format := frame.SourceRGB888
	if img.NChan() == 1 {
		format = frame.SourceGrayscale
	}
	rowBytes := img.Width * img.NChan()
	if img.Stride == rowBytes {
		return format, img.Pixels[:rowBytes*img.Height]
	}
	packed := make([]byte, rowBytes*img.Height)
	for y := 0; y < img.Height; y++ {
		copy(packed[y*rowBytes:(y+1)*rowBytes], img.Pixels[y*img.Stride:])
	}
	return format, packed
}
