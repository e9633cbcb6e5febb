package devices

import (
	"encoding/json"

	"hippy/client"
)

// LampState enumerates the desk lamp intensities.
type LampState string

const (
	LampHigh LampState = "high"
	LampLow  LampState = "low"
	LampOff  LampState = "off"
)

// DeskLamp controls the Sprout desk lamp.
type DeskLamp struct {
	Device
}

// NewDeskLamp creates a desklamp wrapper. An optional index selects one
// of several lamps.
func NewDeskLamp(c Caller, index ...int) *DeskLamp {
	d := &DeskLamp{Device: newDevice(c, "desklamp", index)}
	d.conv = convertDeskLampParams
	return d
}

// High turns the lamp LEDs to high intensity.
func (d *DeskLamp) High() error { return callVoid(&d.Device, "high") }

// Low turns the lamp LEDs to low intensity.
func (d *DeskLamp) Low() error { return callVoid(&d.Device, "low") }

// Off turns the lamp LEDs off.
func (d *DeskLamp) Off() error { return callVoid(&d.Device, "off") }

// State returns the current lamp state.
func (d *DeskLamp) State() (LampState, error) {
	return call[LampState](&d.Device, "state")
}

func convertDeskLampParams(method string, params []json.RawMessage) (any, error) {
	if client.StripIndex(method) == "desklamp.on_state" {
		return decodeFirst[LampState](params)
	}
	return client.DefaultParams(method, params)
}
