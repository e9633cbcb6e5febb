package devices

import (
	"encoding/json"

	"hippy/client"
	"hippy/protocol"
)

// ProjectorState enumerates the projector's operating states.
type ProjectorState string

const (
	ProjectorOff                   ProjectorState = "off"
	ProjectorStandby               ProjectorState = "standby"
	ProjectorOn                    ProjectorState = "on"
	ProjectorOvertemp              ProjectorState = "overtemp"
	ProjectorFlashing              ProjectorState = "flashing"
	ProjectorTransitionToOn        ProjectorState = "transition_to_on"
	ProjectorTransitionToSt        ProjectorState = "transition_to_st"
	ProjectorHWFault               ProjectorState = "hw_fault"
	ProjectorInitializing          ProjectorState = "initializing"
	ProjectorOnNoSource            ProjectorState = "on_no_source"
	ProjectorTransitionToFlash     ProjectorState = "transition_to_flash"
	ProjectorTransitionToGrayscale ProjectorState = "transition_to_grayscale"
	ProjectorGrayscale             ProjectorState = "grayscale"
	ProjectorFWUpgrade             ProjectorState = "fw_upgrade"
	ProjectorBurnIn                ProjectorState = "burn_in"
	ProjectorSolidColor            ProjectorState = "solid_color"
)

// SolidColor enumerates the colors the projector can fill the screen
// with.
type SolidColor string

const (
	SolidColorOff     SolidColor = "off"
	SolidColorBlack   SolidColor = "black"
	SolidColorRed     SolidColor = "red"
	SolidColorGreen   SolidColor = "green"
	SolidColorBlue    SolidColor = "blue"
	SolidColorCyan    SolidColor = "cyan"
	SolidColorMagenta SolidColor = "magenta"
	SolidColorYellow  SolidColor = "yellow"
	SolidColorWhite   SolidColor = "white"
)

func (s SolidColor) valid() bool {
	switch s {
	case SolidColorOff, SolidColorBlack, SolidColorRed, SolidColorGreen,
		SolidColorBlue, SolidColorCyan, SolidColorMagenta, SolidColorYellow,
		SolidColorWhite:
		return true
	}
	return false
}

// Illuminant enumerates the target white points the projector supports.
type Illuminant string

const (
	IlluminantD50    Illuminant = "d50"
	IlluminantD65    Illuminant = "d65"
	IlluminantD75    Illuminant = "d75"
	IlluminantCustom Illuminant = "custom"
)

// WhitePoint selects a target white point, with explicit chromaticity
// coordinates when the name is custom.
type WhitePoint struct {
	Name Illuminant `json:"name"`
	X    *float64   `json:"x,omitempty"`
	Y    *float64   `json:"y,omitempty"`
}

// Corner2D is one corner displacement of a 2D keystone.
type Corner2D struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Keystone2D is the projector's four-corner geometry correction.
type Keystone2D struct {
	TopLeft     Corner2D `json:"top_left"`
	TopRight    Corner2D `json:"top_right"`
	BottomLeft  Corner2D `json:"bottom_left"`
	BottomRight Corner2D `json:"bottom_right"`
}

// Keystone wraps the keystone type and value as SoHal exchanges them.
type Keystone struct {
	Type  string     `json:"type"`
	Value Keystone2D `json:"value"`
}

// LEDTimes reports how long the projector LEDs have run, in minutes.
type LEDTimes struct {
	GrayscaleTime float64 `json:"grayscale_time"`
	OnTime        float64 `json:"on_time"`
	FlashTime     float64 `json:"flash_time"`
}

// MonitorCoordinates locates the projector's display in desktop
// coordinates.
type MonitorCoordinates struct {
	Coordinates Rectangle `json:"coordinates"`
	HardwareID  string    `json:"hardware_id"`
}

// Projector controls the Sprout projector.
type Projector struct {
	Device
}

// NewProjector creates a projector wrapper. An optional index selects
// one of several projectors.
func NewProjector(c Caller, index ...int) *Projector {
	p := &Projector{Device: newDevice(c, "projector", index)}
	p.conv = convertProjectorParams
	return p
}

// Brightness returns the current brightness, 30 to 100 percent.
func (p *Projector) Brightness() (int, error) {
	return call[int](&p.Device, "brightness")
}

// SetBrightness sets the brightness, 30 to 100 percent.
func (p *Projector) SetBrightness(value int) (int, error) {
	return call[int](&p.Device, "brightness", value)
}

// CalibrationData returns the projector's calibration blob.
func (p *Projector) CalibrationData() (map[string]any, error) {
	return call[map[string]any](&p.Device, "calibration_data")
}

// DeviceSpecificInfo returns projector-specific hardware details such as
// the video port in use.
func (p *Projector) DeviceSpecificInfo() (map[string]any, error) {
	return call[map[string]any](&p.Device, "device_specific_info")
}

// Flash puts the projector into flash mode. content selects the
// grayscale ramp when true and solid white when false. The projector
// returns to its previous state after the flash times out.
func (p *Projector) Flash(content bool) (int, error) {
	return call[int](&p.Device, "flash", content)
}

// Grayscale puts the projector into grayscale mode.
func (p *Projector) Grayscale() error {
	return callVoid(&p.Device, "grayscale")
}

// HardwareInfo returns the projector's hardware description, including
// its native resolution.
func (p *Projector) HardwareInfo() (map[string]any, error) {
	return call[map[string]any](&p.Device, "hardware_info")
}

// Keystone returns the current geometry correction.
func (p *Projector) Keystone() (Keystone, error) {
	return call[Keystone](&p.Device, "keystone")
}

// SetKeystone updates the geometry correction.
func (p *Projector) SetKeystone(k Keystone) (Keystone, error) {
	return call[Keystone](&p.Device, "keystone", k)
}

// LEDTimes returns how long the projector LEDs have been on, in
// minutes.
func (p *Projector) LEDTimes() (LEDTimes, error) {
	return call[LEDTimes](&p.Device, "led_times")
}

// ManufacturingData returns the projector's manufacturing record.
func (p *Projector) ManufacturingData() (map[string]any, error) {
	return call[map[string]any](&p.Device, "manufacturing_data")
}

// MonitorCoordinates returns where the projector display sits in
// desktop coordinates.
func (p *Projector) MonitorCoordinates() (MonitorCoordinates, error) {
	return call[MonitorCoordinates](&p.Device, "monitor_coordinates")
}

// On turns the projector on.
func (p *Projector) On() error { return callVoid(&p.Device, "on") }

// Off turns the projector off.
func (p *Projector) Off() error { return callVoid(&p.Device, "off") }

// State returns the projector's current operating state.
func (p *Projector) State() (ProjectorState, error) {
	return call[ProjectorState](&p.Device, "state")
}

// SolidColor returns the color currently projected, or off when the
// projector is not in solid color mode.
func (p *Projector) SolidColor() (SolidColor, error) {
	return call[SolidColor](&p.Device, "solid_color")
}

// SetSolidColor makes the projector fill the screen with the given
// color.
func (p *Projector) SetSolidColor(color SolidColor) (SolidColor, error) {
	if !color.valid() {
		return "", protocol.InvalidParameterError()
	}
	return call[SolidColor](&p.Device, "solid_color", color)
}

// StructuredLightMode reports whether structured light mode is enabled.
func (p *Projector) StructuredLightMode() (bool, error) {
	return call[bool](&p.Device, "structured_light_mode")
}

// SetStructuredLightMode enables or disables structured light mode.
func (p *Projector) SetStructuredLightMode(enabled bool) (bool, error) {
	return call[bool](&p.Device, "structured_light_mode", enabled)
}

// WhitePoint returns the current target white point.
func (p *Projector) WhitePoint() (WhitePoint, error) {
	return call[WhitePoint](&p.Device, "white_point")
}

// SetWhitePoint updates the target white point.
func (p *Projector) SetWhitePoint(wp WhitePoint) (WhitePoint, error) {
	return call[WhitePoint](&p.Device, "white_point", wp)
}

func convertProjectorParams(method string, params []json.RawMessage) (any, error) {
	switch client.StripIndex(method) {
	case "projector.on_state":
		return decodeFirst[ProjectorState](params)
	case "projector.on_solid_color":
		return decodeFirst[SolidColor](params)
	case "projector.on_white_point":
		return decodeFirst[WhitePoint](params)
	}
	return client.DefaultParams(method, params)
}
