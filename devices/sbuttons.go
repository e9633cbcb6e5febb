package devices

import (
	"encoding/json"

	"hippy/client"
	"hippy/protocol"
)

// ButtonID enumerates the three Sprout buttons.
type ButtonID string

const (
	ButtonLeft   ButtonID = "left"
	ButtonCenter ButtonID = "center"
	ButtonRight  ButtonID = "right"
)

func (b ButtonID) valid() bool {
	switch b {
	case ButtonLeft, ButtonCenter, ButtonRight:
		return true
	}
	return false
}

// LEDColor enumerates the colors each button LED supports.
type LEDColor string

const (
	LEDOrange      LEDColor = "orange"
	LEDWhite       LEDColor = "white"
	LEDWhiteOrange LEDColor = "white_orange"
)

// LEDMode enumerates the button LED modes.
type LEDMode string

const (
	LEDModeOff           LEDMode = "off"
	LEDModeOn            LEDMode = "on"
	LEDModePulse         LEDMode = "pulse"
	LEDModeControlledOn  LEDMode = "controlled_on"
	LEDModeControlledOff LEDMode = "controlled_off"
	LEDModeBreath        LEDMode = "breath"
)

// ButtonPressType distinguishes a tap from a hold.
type ButtonPressType string

const (
	PressTap  ButtonPressType = "tap"
	PressHold ButtonPressType = "hold"
)

// ButtonLEDState is the color and mode of one button LED. Empty fields
// keep their current value on set.
type ButtonLEDState struct {
	Color LEDColor `json:"color,omitempty"`
	Mode  LEDMode  `json:"mode,omitempty"`
}

// ButtonPress is the payload of sbuttons.on_button_press.
type ButtonPress struct {
	ID   ButtonID        `json:"id"`
	Type ButtonPressType `json:"type"`
}

// ButtonLEDChange is the payload of sbuttons.on_led_state, naming the
// button whose LED changed and its new state.
type ButtonLEDChange struct {
	ID    ButtonID
	State ButtonLEDState
}

// SButtons controls the Sprout buttons.
type SButtons struct {
	Device
}

// NewSButtons creates an sbuttons wrapper. An optional index selects one
// of several button strips.
func NewSButtons(c Caller, index ...int) *SButtons {
	s := &SButtons{Device: newDevice(c, "sbuttons", index)}
	s.conv = convertSButtonsParams
	return s
}

// HoldThreshold returns the threshold, in milliseconds, separating a tap
// from a hold.
func (s *SButtons) HoldThreshold() (int, error) {
	return call[int](&s.Device, "hold_threshold")
}

// SetHoldThreshold updates the tap versus hold threshold.
func (s *SButtons) SetHoldThreshold(ms int) (int, error) {
	return call[int](&s.Device, "hold_threshold", ms)
}

// LEDOnOffRate returns the current LED on/off rate.
func (s *SButtons) LEDOnOffRate() (int, error) {
	return call[int](&s.Device, "led_on_off_rate")
}

// SetLEDOnOffRate updates the LED on/off rate.
func (s *SButtons) SetLEDOnOffRate(rate int) (int, error) {
	return call[int](&s.Device, "led_on_off_rate", rate)
}

// LEDPulseRate returns the rate the LEDs blink at in pulse mode.
func (s *SButtons) LEDPulseRate() (int, error) {
	return call[int](&s.Device, "led_pulse_rate")
}

// SetLEDPulseRate updates the pulse mode blink rate.
func (s *SButtons) SetLEDPulseRate(rate int) (int, error) {
	return call[int](&s.Device, "led_pulse_rate", rate)
}

// LEDState returns the current color and mode of the given button's LED.
func (s *SButtons) LEDState(led ButtonID) (ButtonLEDState, error) {
	if !led.valid() {
		return ButtonLEDState{}, protocol.InvalidParameterError()
	}
	return call[ButtonLEDState](&s.Device, "led_state", led)
}

// SetLEDState updates the given button's LED. Fields left empty keep
// their current value. The button and state travel as two separate
// parameters.
func (s *SButtons) SetLEDState(led ButtonID, state ButtonLEDState) (ButtonLEDState, error) {
	if !led.valid() {
		return ButtonLEDState{}, protocol.InvalidParameterError()
	}
	return call[ButtonLEDState](&s.Device, "led_state", led, state)
}

func convertSButtonsParams(method string, params []json.RawMessage) (any, error) {
	switch client.StripIndex(method) {
	case "sbuttons.on_led_state":
		// Two parameters: the button id and its new LED state.
		var change ButtonLEDChange
		if len(params) > 0 {
			if err := json.Unmarshal(params[0], &change.ID); err != nil {
				return nil, err
			}
		}
		if len(params) > 1 {
			if err := json.Unmarshal(params[1], &change.State); err != nil {
				return nil, err
			}
		}
		return change, nil
	case "sbuttons.on_button_press":
		return decodeFirst[ButtonPress](params)
	}
	return client.DefaultParams(method, params)
}
