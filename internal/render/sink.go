package render

import (
	"bufio"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/image/bmp"
)

// Frame file formats.
const (
	FormatPNG = "png"
	FormatBMP = "bmp"
)

// DigitWidth is the zero-padded width of frame numbers for a run of total
// frames: at least 4, wider when the last index needs it.
func DigitWidth(total int) int {
	return max(4, len(strconv.Itoa(max(total-1, 0))))
}

// FrameName returns the file name of frame i in a run of total frames.
func FrameName(i, total int, format string) string {
	return fmt.Sprintf("frame_%0*d.%s", DigitWidth(total), i, format)
}

// DiskSink writes each frame as an image file in one directory.
type DiskSink struct {
	dir    string
	format string
	total  int
	count  int
	png    png.Encoder
}

// NewDiskSink creates dir and returns a sink for a run of total frames.
func NewDiskSink(dir, format string, total int) (*DiskSink, error) {
	if format == "" {
		format = FormatPNG
	}
	if format != FormatPNG && format != FormatBMP {
		return nil, fmt.Errorf("unsupported frame format %q", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}
	return &DiskSink{
		dir:    dir,
		format: format,
		total:  total,
		png:    png.Encoder{CompressionLevel: png.BestSpeed},
	}, nil
}

func (s *DiskSink) WriteFrame(f Frame) error {
	path := s.Path(f.Index)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}

	w := bufio.NewWriter(file)
	switch s.format {
	case FormatBMP:
		err = bmp.Encode(w, f.Image)
	default:
		err = s.png.Encode(w, f.Image)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.count++
	return nil
}

// Pattern returns the printf-style input pattern ffmpeg uses to read the frames.
func (s *DiskSink) Pattern() string {
	return filepath.Join(s.dir, fmt.Sprintf("frame_%%0%dd.%s", DigitWidth(s.total), s.format))
}

// Path returns the file path of frame i.
func (s *DiskSink) Path(i int) string {
	return filepath.Join(s.dir, FrameName(i, s.total, s.format))
}

// Count returns the number of frames written.
func (s *DiskSink) Count() int { return s.count }

// Dir returns the frame directory.
func (s *DiskSink) Dir() string { return s.dir }

// MemorySink keeps frames in memory, in order.
type MemorySink struct {
	Frames []Frame
}

func (s *MemorySink) WriteFrame(f Frame) error {
	s.Frames = append(s.Frames, f)
	return nil
}
