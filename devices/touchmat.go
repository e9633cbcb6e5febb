package devices

import (
	"encoding/json"

	"hippy/client"
	"hippy/protocol"
)

// ActivePenRange enumerates the heights at which the touchmat starts
// detecting the active pen.
type ActivePenRange string

const (
	PenRangeFiveMM    ActivePenRange = "five_mm"
	PenRangeTenMM     ActivePenRange = "ten_mm"
	PenRangeFifteenMM ActivePenRange = "fifteen_mm"
	PenRangeTwentyMM  ActivePenRange = "twenty_mm"
)

func (r ActivePenRange) valid() bool {
	switch r {
	case PenRangeFiveMM, PenRangeTenMM, PenRangeFifteenMM, PenRangeTwentyMM:
		return true
	}
	return false
}

// TouchPoint is a position on the touchmat surface. x ranges 0..15360
// and y 0..8640.
type TouchPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ActiveArea restricts touch input to the region between Start and End
// while Enabled is true.
type ActiveArea struct {
	Enabled *bool       `json:"enabled,omitempty"`
	Start   *TouchPoint `json:"start,omitempty"`
	End     *TouchPoint `json:"end,omitempty"`
}

// TouchMatState selects which input sources the touchmat accepts. Nil
// fields are left unchanged on set.
type TouchMatState struct {
	Touch     *bool `json:"touch,omitempty"`
	ActivePen *bool `json:"active_pen,omitempty"`
}

// TouchMatHardwareInfo describes the physical touch-sensitive area.
type TouchMatHardwareInfo struct {
	Size struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"size"`
}

// TouchMat controls the Sprout touch mat.
type TouchMat struct {
	Device
}

// NewTouchMat creates a touchmat wrapper. An optional index selects one
// of several mats.
func NewTouchMat(c Caller, index ...int) *TouchMat {
	t := &TouchMat{Device: newDevice(c, "touchmat", index)}
	t.conv = convertTouchMatParams
	return t
}

// ActiveArea returns the current active area.
func (t *TouchMat) ActiveArea() (ActiveArea, error) {
	return call[ActiveArea](&t.Device, "active_area")
}

// SetActiveArea updates the active area. Nil fields keep their current
// value.
func (t *TouchMat) SetActiveArea(area ActiveArea) (ActiveArea, error) {
	return call[ActiveArea](&t.Device, "active_area", area)
}

// ActivePenRange returns the height threshold for active pen detection.
func (t *TouchMat) ActivePenRange() (ActivePenRange, error) {
	return call[ActivePenRange](&t.Device, "active_pen_range")
}

// SetActivePenRange updates the active pen detection threshold.
func (t *TouchMat) SetActivePenRange(r ActivePenRange) (ActivePenRange, error) {
	if !r.valid() {
		return "", protocol.InvalidParameterError()
	}
	return call[ActivePenRange](&t.Device, "active_pen_range", r)
}

// Calibrate recalibrates the input signal thresholds. This is unrelated
// to xy position calibration.
func (t *TouchMat) Calibrate() error {
	return callVoid(&t.Device, "calibrate")
}

// DevicePalmRejection reports whether the mat's internal palm rejection
// is enabled.
func (t *TouchMat) DevicePalmRejection() (bool, error) {
	return call[bool](&t.Device, "device_palm_rejection")
}

// SetDevicePalmRejection enables or disables the mat's internal palm
// rejection. It only takes effect when both touch and active pen input
// are enabled.
func (t *TouchMat) SetDevicePalmRejection(enabled bool) (bool, error) {
	return call[bool](&t.Device, "device_palm_rejection", enabled)
}

// HardwareInfo returns the mat's hardware description.
func (t *TouchMat) HardwareInfo() (TouchMatHardwareInfo, error) {
	return call[TouchMatHardwareInfo](&t.Device, "hardware_info")
}

// PalmRejectionTimeout returns the palm rejection timeout in
// milliseconds.
func (t *TouchMat) PalmRejectionTimeout() (int, error) {
	return call[int](&t.Device, "palm_rejection_timeout")
}

// SetPalmRejectionTimeout sets how long all input must stop, in
// milliseconds, before the mat accepts touch input again after pen
// input.
func (t *TouchMat) SetPalmRejectionTimeout(ms int) (int, error) {
	return call[int](&t.Device, "palm_rejection_timeout", ms)
}

// Reset reboots the touchmat, equivalent to undocking and redocking it.
// SoHal sends disconnect and reconnect notifications and the device must
// be opened again afterwards.
func (t *TouchMat) Reset() error {
	return callVoid(&t.Device, "reset")
}

// State returns which input sources the mat currently accepts.
func (t *TouchMat) State() (TouchMatState, error) {
	return call[TouchMatState](&t.Device, "state")
}

// SetState updates which input sources the mat accepts. Nil fields keep
// their current value.
func (t *TouchMat) SetState(state TouchMatState) (TouchMatState, error) {
	return call[TouchMatState](&t.Device, "state", state)
}

func convertTouchMatParams(method string, params []json.RawMessage) (any, error) {
	if client.StripIndex(method) == "touchmat.on_active_pen_range" {
		return decodeFirst[ActivePenRange](params)
	}
	return client.DefaultParams(method, params)
}
