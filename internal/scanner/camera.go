package scanner

import (
	"context"
	"io"
)

// FacingEnvironment selects the rear camera.
const FacingEnvironment = "environment"

// CameraFailurePrefix starts the alert shown when the camera cannot be opened.
const CameraFailurePrefix = "카메라 접근 실패: "

// Constraints describes the requested media stream.
type Constraints struct {
	Video      bool
	Audio      bool
	FacingMode string
}

// CameraConstraints is the stream requested for QR scanning: rear
// facing video, no audio, no resolution constraint.
func CameraConstraints() Constraints {
	return Constraints{
		Video:      true,
		Audio:      false,
		FacingMode: FacingEnvironment,
	}
}

// Stream is an acquired media stream.
type Stream interface {
	io.Closer
	Label() string
}

// MediaDevices is the host media-capture capability.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, c Constraints) (Stream, error)
}

// Surface displays a stream.
type Surface interface {
	Attach(s Stream)
	Play() error
}

// AcquireCamera requests the rear camera and plays it on surface.
// A nil host means the capability is not exposed and nothing happens.
// Failures are shown through p and nothing is attached. The stream is
// never released here; it lives as long as the surface does.
func AcquireCamera(ctx context.Context, host MediaDevices, surface Surface, p Presenter) {
	if host == nil {
		return
	}

	stream, err := host.GetUserMedia(ctx, CameraConstraints())
	if err != nil {
		p.Alert(CameraFailurePrefix + err.Error())
		return
	}

	surface.Attach(stream)
	if err := surface.Play(); err != nil {
		p.Alert(CameraFailurePrefix + err.Error())
	}
}
