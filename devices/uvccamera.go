package devices

import "encoding/json"

// UVCCamera controls a generic UVC camera attached to the system.
type UVCCamera struct {
	Camera
}

// NewUVCCamera creates a uvccamera wrapper. An optional index selects
// one of several cameras.
func NewUVCCamera(c Caller, index ...int) *UVCCamera {
	u := &UVCCamera{Camera: newCamera(c, "uvccamera", index)}
	u.conv = func(method string, params []json.RawMessage) (any, error) {
		return convertCameraParams("uvccamera", method, params)
	}
	return u
}

// CameraIndex returns the camera's device index.
func (u *UVCCamera) CameraIndex() (int, error) {
	return call[int](&u.Device, "camera_index")
}
