package devices

import "encoding/json"

// MirrorStreams selects per-stream horizontal mirroring. Nil fields
// keep their current value.
type MirrorStreams struct {
	Color  *bool `json:"color,omitempty"`
	Depth  *bool `json:"depth,omitempty"`
	IR     *bool `json:"ir,omitempty"`
	Points *bool `json:"points,omitempty"`
}

// DepthCamera controls the Sprout depth camera.
type DepthCamera struct {
	Camera
}

// NewDepthCamera creates a depthcamera wrapper. An optional index
// selects one of several cameras.
func NewDepthCamera(c Caller, index ...int) *DepthCamera {
	d := &DepthCamera{Camera: newCamera(c, "depthcamera", index)}
	d.conv = func(method string, params []json.RawMessage) (any, error) {
		return convertCameraParams("depthcamera", method, params)
	}
	return d
}

// IRFloodOn reports whether the infrared flood light is on. Only
// supported on the 1.6 depth camera.
func (d *DepthCamera) IRFloodOn() (bool, error) {
	return call[bool](&d.Device, "ir_flood_on")
}

// SetIRFloodOn turns the infrared flood light on or off.
func (d *DepthCamera) SetIRFloodOn(on bool) (bool, error) {
	return call[bool](&d.Device, "ir_flood_on", on)
}

// LaserOn reports whether the camera's laser is on. Only supported on
// the 1.6 depth camera.
func (d *DepthCamera) LaserOn() (bool, error) {
	return call[bool](&d.Device, "laser_on")
}

// SetLaserOn turns the laser on or off.
func (d *DepthCamera) SetLaserOn(on bool) (bool, error) {
	return call[bool](&d.Device, "laser_on", on)
}

// IRToRGBCalibration returns the IR to RGB calibration record. Only
// supported on the 1.6 depth camera.
func (d *DepthCamera) IRToRGBCalibration() (map[string]any, error) {
	return call[map[string]any](&d.Device, "ir_to_rgb_calibration")
}

// MirrorFrame returns the per-stream mirroring configuration.
func (d *DepthCamera) MirrorFrame() (MirrorStreams, error) {
	return call[MirrorStreams](&d.Device, "mirror_frame")
}

// SetMirrorFrame updates the per-stream mirroring configuration. Nil
// fields keep their current value.
func (d *DepthCamera) SetMirrorFrame(mirror MirrorStreams) (MirrorStreams, error) {
	return call[MirrorStreams](&d.Device, "mirror_frame", mirror)
}
