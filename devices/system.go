package devices

import (
	"encoding/json"

	"hippy/client"
)

// PowerState enumerates the states reported by system.on_power_state
// notifications.
type PowerState string

const (
	PowerDisplayOn     PowerState = "display_on"
	PowerDisplayOff    PowerState = "display_off"
	PowerDisplayDimmed PowerState = "display_dimmed"
	PowerLogOff        PowerState = "log_off"
	PowerResume        PowerState = "resume"
	PowerShutDown      PowerState = "shut_down"
	PowerSuspend       PowerState = "suspend"
)

// SessionChangeEvent enumerates the console session events reported by
// system.on_session_change notifications.
type SessionChangeEvent string

const (
	SessionConsoleConnect    SessionChangeEvent = "console_connect"
	SessionConsoleDisconnect SessionChangeEvent = "console_disconnect"
	SessionLogon             SessionChangeEvent = "session_logon"
	SessionLogoff            SessionChangeEvent = "session_logoff"
	SessionLock              SessionChangeEvent = "session_lock"
	SessionUnlock            SessionChangeEvent = "session_unlock"
)

// SessionChange is the payload of system.on_session_change.
type SessionChange struct {
	Event     SessionChangeEvent `json:"event"`
	SessionID int                `json:"session_id"`
}

// Rectangle is a display region in desktop coordinates.
type Rectangle struct {
	Height int `json:"height"`
	Width  int `json:"width"`
	X      int `json:"x"`
	Y      int `json:"y"`
}

// DisplayInfo describes one connected display.
type DisplayInfo struct {
	Coordinates    Rectangle `json:"coordinates"`
	HardwareID     string    `json:"hardware_id"`
	PrimaryDisplay bool      `json:"primary_display"`
}

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PointFloats is a 2D point.
type PointFloats struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LensDistortion holds one camera's distortion model.
type LensDistortion struct {
	Center PointFloats `json:"center"`
	Kappa  []float64   `json:"kappa"`
	P      []float64   `json:"p"`
}

// CameraStream names one stream of one camera device.
type CameraStream struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Stream string `json:"stream"`
}

// CameraParameters holds the calibrated intrinsics of one camera stream.
type CameraParameters struct {
	CalibrationResolution Resolution     `json:"calibration_resolution"`
	Camera                CameraStream   `json:"camera"`
	FocalLength           PointFloats    `json:"focal_length"`
	LensDistortion        LensDistortion `json:"lens_distortion"`
}

// Camera3DMapping is the 3D transformation between two camera streams.
type Camera3DMapping struct {
	From                 CameraParameters `json:"from"`
	MatrixTransformation [][]float64      `json:"matrix_transformation"`
	To                   CameraParameters `json:"to"`
}

// System exposes the SoHal methods and notifications that span devices
// or apply to the system as a whole. Unlike the hardware wrappers it has
// no open/close lifecycle.
type System struct {
	caller Caller
}

// NewSystem creates the system wrapper on the given connection.
func NewSystem(c Caller) *System {
	return &System{caller: c}
}

func (s *System) call(method string, params ...any) (json.RawMessage, error) {
	return s.caller.Call("system", method, params...)
}

func systemCall[T any](s *System, method string, params ...any) (T, error) {
	var zero T
	raw, err := s.call(method, params...)
	if err != nil {
		return zero, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, err
	}
	return v, nil
}

// Camera3DMapping returns the 3D transformation between the two camera
// streams named in the request, for example depthcamera rgb to
// hirescamera rgb.
func (s *System) Camera3DMapping(from, to CameraStream) (Camera3DMapping, error) {
	mapping := map[string]CameraStream{"from": from, "to": to}
	return systemCall[Camera3DMapping](s, "camera_3d_mapping", mapping)
}

// Devices returns the full identification record of every connected
// device.
func (s *System) Devices() ([]DeviceInfo, error) {
	return systemCall[[]DeviceInfo](s, "devices")
}

// DeviceIDs returns the basic identification of every connected device.
// It is cheaper than Devices because SoHal does not have to query
// firmware versions and serial numbers.
func (s *System) DeviceIDs() ([]DeviceID, error) {
	return systemCall[[]DeviceID](s, "device_ids")
}

// Echo sends value to SoHal, which echoes it back. Useful for exercising
// the connection.
func (s *System) Echo(value any) (any, error) {
	return systemCall[any](s, "echo", value)
}

// HardwareIDs returns the hardware ids of the system's components.
func (s *System) HardwareIDs() (map[string][]string, error) {
	return systemCall[map[string][]string](s, "hardware_ids")
}

// IsLocked reports the console session state: "locked", "unlocked" or
// "unknown".
func (s *System) IsLocked() (string, error) {
	return systemCall[string](s, "is_locked")
}

// ListDisplays returns information on all connected displays.
func (s *System) ListDisplays() ([]DisplayInfo, error) {
	return systemCall[[]DisplayInfo](s, "list_displays")
}

// SessionID returns the current active console session id.
func (s *System) SessionID() (int, error) {
	return systemCall[int](s, "session_id")
}

// SupportedDevices returns the names of all device classes SoHal
// supports.
func (s *System) SupportedDevices() ([]string, error) {
	return systemCall[[]string](s, "supported_devices")
}

// Temperatures returns temperature sensor readings for the named
// devices, or for every connected device when none are named.
func (s *System) Temperatures(devices ...string) ([]TemperatureInfo, error) {
	// The device list travels as a single list-valued parameter.
	if len(devices) == 0 {
		return systemCall[[]TemperatureInfo](s, "temperatures")
	}
	return systemCall[[]TemperatureInfo](s, "temperatures", devices)
}

// Subscribe registers cb for system notifications, decoding power state
// and session change payloads into their typed forms.
func (s *System) Subscribe(cb client.NotificationFunc) (int, error) {
	s.caller.SetParamConverter("system", convertSystemParams)
	return s.caller.Subscribe("system", cb)
}

// Unsubscribe stops system notifications.
func (s *System) Unsubscribe() (int, error) {
	return s.caller.Unsubscribe("system")
}

func convertSystemParams(method string, params []json.RawMessage) (any, error) {
	switch client.StripIndex(method) {
	case "system.on_power_state":
		return decodeFirst[PowerState](params)
	case "system.on_session_change":
		return decodeFirst[SessionChange](params)
	}
	return client.DefaultParams(method, params)
}

// decodeFirst decodes the first notification parameter into T.
func decodeFirst[T any](params []json.RawMessage) (T, error) {
	var v T
	if len(params) == 0 {
		return v, nil
	}
	err := json.Unmarshal(params[0], &v)
	return v, err
}
