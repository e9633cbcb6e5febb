package devices

import (
	"encoding/json"

	"hippy/client"
	"hippy/protocol"
)

// CameraMode enumerates the high resolution camera's capture modes by
// their native resolution.
type CameraMode string

const (
	ModeFullRes CameraMode = "4416x3312"
	ModeVideo   CameraMode = "2208x1656"
	ModeHighFPS CameraMode = "1104x828"
)

func (m CameraMode) valid() bool {
	switch m {
	case ModeFullRes, ModeVideo, ModeHighFPS:
		return true
	}
	return false
}

// CameraLEDState enumerates the states of the high resolution camera
// LEDs.
type CameraLEDState string

const (
	CameraLEDOff  CameraLEDState = "off"
	CameraLEDLow  CameraLEDState = "low"
	CameraLEDHigh CameraLEDState = "high"
	CameraLEDAuto CameraLEDState = "auto"
)

// CameraLEDs is the LED configuration while streaming and while
// capturing a still image. The streaming state only accepts off or low.
type CameraLEDs struct {
	Capture   CameraLEDState `json:"capture,omitempty"`
	Streaming CameraLEDState `json:"streaming,omitempty"`
}

// CameraConfig is the factory configuration for one capture mode.
type CameraConfig struct {
	Exposure     int        `json:"exposure"`
	FPS          int        `json:"fps"`
	Gain         int        `json:"gain"`
	Mode         CameraMode `json:"mode"`
	WhiteBalance RGB        `json:"white_balance"`
}

// RGB holds per-channel white balance values.
type RGB struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
}

// CameraStatus reports the health of the camera subsystems. Each value
// is "ok", "busy" or "error".
type CameraStatus struct {
	Generic          string `json:"generic"`
	IspColorBar      string `json:"isp_colorbar"`
	IspFunction      string `json:"isp_function"`
	IspFWBoot        string `json:"isp_fw_boot"`
	IspReset         string `json:"isp_reset"`
	IspRestoreFactor string `json:"isp_restore_factory"`
	IspVideoStream   string `json:"isp_videostream"`
	LoadLenscolor    string `json:"load_lenscolor"`
	LoadLensshading  string `json:"load_lensshading"`
	LoadWhiteLED     string `json:"load_whiteled"`
	SpecialMode      string `json:"special_mode"`
	Thermal          string `json:"thermal_shutdown"`
}

// HiResCamera controls the high resolution downward-facing camera.
type HiResCamera struct {
	Camera
}

// NewHiResCamera creates a hirescamera wrapper. An optional index
// selects one of several cameras.
func NewHiResCamera(c Caller, index ...int) *HiResCamera {
	h := &HiResCamera{Camera: newCamera(c, "hirescamera", index)}
	h.conv = convertHiResCameraParams
	return h
}

// AutoExposure reports whether auto exposure is enabled.
func (h *HiResCamera) AutoExposure() (bool, error) {
	return call[bool](&h.Device, "auto_exposure")
}

// SetAutoExposure enables or disables auto exposure.
func (h *HiResCamera) SetAutoExposure(auto bool) (bool, error) {
	return call[bool](&h.Device, "auto_exposure", auto)
}

// AutoGain reports whether auto gain is enabled.
func (h *HiResCamera) AutoGain() (bool, error) {
	return call[bool](&h.Device, "auto_gain")
}

// SetAutoGain enables or disables auto gain.
func (h *HiResCamera) SetAutoGain(auto bool) (bool, error) {
	return call[bool](&h.Device, "auto_gain", auto)
}

// AutoWhiteBalance reports whether auto white balance is enabled.
func (h *HiResCamera) AutoWhiteBalance() (bool, error) {
	return call[bool](&h.Device, "auto_white_balance")
}

// SetAutoWhiteBalance enables or disables auto white balance.
func (h *HiResCamera) SetAutoWhiteBalance(auto bool) (bool, error) {
	return call[bool](&h.Device, "auto_white_balance", auto)
}

// Brightness returns the current brightness setting.
func (h *HiResCamera) Brightness() (int, error) {
	return call[int](&h.Device, "brightness")
}

// SetBrightness updates the brightness setting.
func (h *HiResCamera) SetBrightness(value int) (int, error) {
	return call[int](&h.Device, "brightness", value)
}

// CameraIndex returns the camera's device index.
func (h *HiResCamera) CameraIndex() (int, error) {
	return call[int](&h.Device, "camera_index")
}

// CameraSettings returns all camera settings in one call.
func (h *HiResCamera) CameraSettings() (map[string]any, error) {
	return call[map[string]any](&h.Device, "camera_settings")
}

// SetCameraSettings updates multiple camera settings in one call.
func (h *HiResCamera) SetCameraSettings(settings map[string]any) (map[string]any, error) {
	return call[map[string]any](&h.Device, "camera_settings", settings)
}

// Contrast returns the current contrast setting.
func (h *HiResCamera) Contrast() (int, error) {
	return call[int](&h.Device, "contrast")
}

// SetContrast updates the contrast setting.
func (h *HiResCamera) SetContrast(value int) (int, error) {
	return call[int](&h.Device, "contrast", value)
}

// DefaultConfig returns the factory configuration for the given mode.
func (h *HiResCamera) DefaultConfig(mode CameraMode) (CameraConfig, error) {
	if !mode.valid() {
		return CameraConfig{}, protocol.InvalidParameterError()
	}
	return call[CameraConfig](&h.Device, "default_config", mode)
}

// DeviceStatus reports the health of the camera hardware and firmware,
// including whether it is in thermal shutdown.
func (h *HiResCamera) DeviceStatus() (CameraStatus, error) {
	return call[CameraStatus](&h.Device, "device_status")
}

// Exposure returns the current exposure. The camera only reports a live
// value while streaming.
func (h *HiResCamera) Exposure() (int, error) {
	return call[int](&h.Device, "exposure")
}

// SetExposure updates the exposure and disables auto exposure.
func (h *HiResCamera) SetExposure(value int) (int, error) {
	return call[int](&h.Device, "exposure", value)
}

// FlipFrame reports whether frames are flipped vertically.
func (h *HiResCamera) FlipFrame() (bool, error) {
	return call[bool](&h.Device, "flip_frame")
}

// SetFlipFrame enables or disables vertical frame flipping.
func (h *HiResCamera) SetFlipFrame(flip bool) (bool, error) {
	return call[bool](&h.Device, "flip_frame", flip)
}

// Gain returns the current gain. The camera only reports a live value
// while streaming.
func (h *HiResCamera) Gain() (int, error) {
	return call[int](&h.Device, "gain")
}

// SetGain updates the gain and disables auto gain.
func (h *HiResCamera) SetGain(value int) (int, error) {
	return call[int](&h.Device, "gain", value)
}

// GammaCorrection reports whether gamma correction is enabled.
func (h *HiResCamera) GammaCorrection() (bool, error) {
	return call[bool](&h.Device, "gamma_correction")
}

// SetGammaCorrection enables or disables gamma correction.
func (h *HiResCamera) SetGammaCorrection(enabled bool) (bool, error) {
	return call[bool](&h.Device, "gamma_correction", enabled)
}

// Keystone returns the camera's geometry correction.
func (h *HiResCamera) Keystone() (Keystone, error) {
	return call[Keystone](&h.Device, "keystone")
}

// SetKeystone updates the camera's geometry correction.
func (h *HiResCamera) SetKeystone(k Keystone) (Keystone, error) {
	return call[Keystone](&h.Device, "keystone", k)
}

// LEDState returns the LED configuration.
func (h *HiResCamera) LEDState() (CameraLEDs, error) {
	return call[CameraLEDs](&h.Device, "led_state")
}

// SetLEDState updates the LED configuration. Empty fields keep their
// current value.
func (h *HiResCamera) SetLEDState(leds CameraLEDs) (CameraLEDs, error) {
	return call[CameraLEDs](&h.Device, "led_state", leds)
}

// LensColorShading reports whether lens color shading correction is
// enabled.
func (h *HiResCamera) LensColorShading() (bool, error) {
	return call[bool](&h.Device, "lens_color_shading")
}

// SetLensColorShading enables or disables lens color shading
// correction.
func (h *HiResCamera) SetLensColorShading(enabled bool) (bool, error) {
	return call[bool](&h.Device, "lens_color_shading", enabled)
}

// LensShading reports whether lens shading correction is enabled.
func (h *HiResCamera) LensShading() (bool, error) {
	return call[bool](&h.Device, "lens_shading")
}

// SetLensShading enables or disables lens shading correction.
func (h *HiResCamera) SetLensShading(enabled bool) (bool, error) {
	return call[bool](&h.Device, "lens_shading", enabled)
}

// MirrorFrame reports whether frames are mirrored horizontally.
func (h *HiResCamera) MirrorFrame() (bool, error) {
	return call[bool](&h.Device, "mirror_frame")
}

// SetMirrorFrame enables or disables horizontal mirroring.
func (h *HiResCamera) SetMirrorFrame(mirror bool) (bool, error) {
	return call[bool](&h.Device, "mirror_frame", mirror)
}

// ParentResolution returns the parent resolution of the current
// streaming resolution.
func (h *HiResCamera) ParentResolution() (Resolution, error) {
	return call[Resolution](&h.Device, "parent_resolution")
}

// ParentResolutionOf returns the parent resolution of the given
// resolution.
func (h *HiResCamera) ParentResolutionOf(res Resolution) (Resolution, error) {
	return call[Resolution](&h.Device, "parent_resolution", res)
}

// PowerLineFrequency returns the anti-flicker frequency in Hz.
func (h *HiResCamera) PowerLineFrequency() (int, error) {
	return call[int](&h.Device, "power_line_frequency")
}

// SetPowerLineFrequency sets the anti-flicker frequency, 50 or 60 Hz.
func (h *HiResCamera) SetPowerLineFrequency(hz int) (int, error) {
	return call[int](&h.Device, "power_line_frequency", hz)
}

// Reset reboots the camera, equivalent to undocking and redocking it.
func (h *HiResCamera) Reset() error {
	return callVoid(&h.Device, "reset")
}

// Saturation returns the current saturation setting.
func (h *HiResCamera) Saturation() (int, error) {
	return call[int](&h.Device, "saturation")
}

// SetSaturation updates the saturation setting.
func (h *HiResCamera) SetSaturation(value int) (int, error) {
	return call[int](&h.Device, "saturation", value)
}

// Sharpness returns the current sharpness setting.
func (h *HiResCamera) Sharpness() (int, error) {
	return call[int](&h.Device, "sharpness")
}

// SetSharpness updates the sharpness setting.
func (h *HiResCamera) SetSharpness(value int) (int, error) {
	return call[int](&h.Device, "sharpness", value)
}

// Strobe fires the camera strobe for the given number of frames with
// the given gain and exposure.
func (h *HiResCamera) Strobe(frames, gain, exposure int) error {
	return callVoid(&h.Device, "strobe", frames, gain, exposure)
}

// WhiteBalance returns the current per-channel white balance.
func (h *HiResCamera) WhiteBalance() (RGB, error) {
	return call[RGB](&h.Device, "white_balance")
}

// SetWhiteBalance updates the per-channel white balance and disables
// auto white balance.
func (h *HiResCamera) SetWhiteBalance(rgb RGB) (RGB, error) {
	return call[RGB](&h.Device, "white_balance", rgb)
}

// WhiteBalanceTemperature returns the white balance temperature in
// Kelvin.
func (h *HiResCamera) WhiteBalanceTemperature() (int, error) {
	return call[int](&h.Device, "white_balance_temperature")
}

// SetWhiteBalanceTemperature updates the white balance temperature.
func (h *HiResCamera) SetWhiteBalanceTemperature(kelvin int) (int, error) {
	return call[int](&h.Device, "white_balance_temperature", kelvin)
}

func convertHiResCameraParams(method string, params []json.RawMessage) (any, error) {
	if client.StripIndex(method) == "hirescamera.on_led_state" {
		return decodeFirst[CameraLEDs](params)
	}
	return convertCameraParams("hirescamera", method, params)
}
