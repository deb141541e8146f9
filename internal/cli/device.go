package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rahul4469/qrguard/internal/scanner"
)

var (
	ErrNoCamera        = errors.New("NotFoundError: no camera device found")
	ErrCameraDenied    = errors.New("NotAllowedError: permission denied")
	ErrVideoNotAllowed = errors.New("TypeError: video must be requested")
	ErrNothingAttached = errors.New("no stream attached")
)

const defaultDevicesGlob = "/dev/video*"

// DeviceHost opens V4L2 style camera nodes. It only proves the device
// can be opened; frames are never read.
type DeviceHost struct {
	// Device forces a specific node. Empty picks the first match of Glob.
	Device string
	Glob   string
}

func (h DeviceHost) GetUserMedia(ctx context.Context, c scanner.Constraints) (scanner.Stream, error) {
	if !c.Video {
		return nil, ErrVideoNotAllowed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := h.pick()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrCameraDenied, path)
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoCamera, path)
		}
		return nil, err
	}

	return &deviceStream{Closer: f, label: fmt.Sprintf("%s (%s)", path, c.FacingMode)}, nil
}

func (h DeviceHost) pick() (string, error) {
	if h.Device != "" {
		return h.Device, nil
	}

	glob := h.Glob
	if glob == "" {
		glob = defaultDevicesGlob
	}
	matches, err := filepath.Glob(glob)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", ErrNoCamera
	}
	sort.Strings(matches)
	return matches[0], nil
}

type deviceStream struct {
	io.Closer
	label string
}

func (s *deviceStream) Label() string { return s.label }

// LogSurface "plays" a stream by announcing it.
type LogSurface struct {
	out    io.Writer
	stream scanner.Stream
}

func NewLogSurface(out io.Writer) *LogSurface {
	return &LogSurface{out: out}
}

func (s *LogSurface) Attach(stream scanner.Stream) {
	s.stream = stream
}

func (s *LogSurface) Play() error {
	if s.stream == nil {
		return ErrNothingAttached
	}
	fmt.Fprintf(s.out, "카메라 연결됨: %s\n", s.stream.Label())
	return nil
}

// Stream returns the attached stream, if any.
func (s *LogSurface) Stream() scanner.Stream {
	return s.stream
}
