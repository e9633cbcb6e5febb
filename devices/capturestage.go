package devices

import (
	"encoding/json"

	"hippy/client"
)

// StageLEDState enumerates the states the capture stage LEDs support.
type StageLEDState string

const (
	StageLEDOff           StageLEDState = "off"
	StageLEDOn            StageLEDState = "on"
	StageLEDBlinkInPhase  StageLEDState = "blink_in_phase"
	StageLEDBlinkOffPhase StageLEDState = "blink_off_phase"
)

// StageLEDs holds the state of the three capture stage LEDs. Empty
// fields keep their current value on set.
type StageLEDs struct {
	Amber StageLEDState `json:"amber,omitempty"`
	Red   StageLEDState `json:"red,omitempty"`
	White StageLEDState `json:"white,omitempty"`
}

// StageLEDRate controls how many milliseconds the LEDs stay on and off
// in the blinking states. Nil fields keep their current value.
type StageLEDRate struct {
	TimeOn  *int `json:"time_on,omitempty"`
	TimeOff *int `json:"time_off,omitempty"`
}

// CaptureStage controls the rotating capture stage accessory.
type CaptureStage struct {
	Device
}

// NewCaptureStage creates a capturestage wrapper. An optional index
// selects one of several stages.
func NewCaptureStage(c Caller, index ...int) *CaptureStage {
	s := &CaptureStage{Device: newDevice(c, "capturestage", index)}
	s.conv = convertCaptureStageParams
	return s
}

// DeviceSpecificInfo returns the serial port the stage is connected to.
func (s *CaptureStage) DeviceSpecificInfo() (map[string]any, error) {
	return call[map[string]any](&s.Device, "device_specific_info")
}

// Home calibrates the stage and returns the turntable to the untilted
// position. Tilt returns errors until this has been called once after
// connecting.
func (s *CaptureStage) Home() error {
	return callVoid(&s.Device, "home")
}

// LEDOnOffRate returns the blink timing of the LEDs.
func (s *CaptureStage) LEDOnOffRate() (StageLEDRate, error) {
	return call[StageLEDRate](&s.Device, "led_on_off_rate")
}

// SetLEDOnOffRate updates the blink timing of the LEDs.
func (s *CaptureStage) SetLEDOnOffRate(rate StageLEDRate) (StageLEDRate, error) {
	return call[StageLEDRate](&s.Device, "led_on_off_rate", rate)
}

// LEDState returns the state of the three LEDs.
func (s *CaptureStage) LEDState() (StageLEDs, error) {
	return call[StageLEDs](&s.Device, "led_state")
}

// SetLEDState updates the three LEDs. Empty fields keep their current
// value.
func (s *CaptureStage) SetLEDState(leds StageLEDs) (StageLEDs, error) {
	return call[StageLEDs](&s.Device, "led_state", leds)
}

// Rotate turns the top surface by the given number of degrees and
// returns how far the stage actually rotated.
func (s *CaptureStage) Rotate(degrees float64) (float64, error) {
	return call[float64](&s.Device, "rotate", degrees)
}

// RotationAngle returns the accumulated rotation since the stage was
// connected, in degrees.
func (s *CaptureStage) RotationAngle() (float64, error) {
	return call[float64](&s.Device, "rotation_angle")
}

// Tilt returns the current tilt rotation angle in degrees.
func (s *CaptureStage) Tilt() (float64, error) {
	return call[float64](&s.Device, "tilt")
}

// SetTilt rotates the bottom portion of the unit to the given tilt
// angle and returns the angle actually reached.
func (s *CaptureStage) SetTilt(degrees float64) (float64, error) {
	return call[float64](&s.Device, "tilt", degrees)
}

func convertCaptureStageParams(method string, params []json.RawMessage) (any, error) {
	if client.StripIndex(method) == "capturestage.on_led_state" {
		return decodeFirst[StageLEDs](params)
	}
	return client.DefaultParams(method, params)
}
