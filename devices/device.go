// Package devices provides typed wrappers for the SoHal devices. Each
// wrapper owns the method names and notification parameter decoding for
// one device class and forwards every operation to a shared client
// connection.
package devices

import (
	"encoding/json"
	"fmt"

	"hippy/client"
)

// Caller is the connection surface the wrappers are built on,
// implemented by *client.Client.
type Caller interface {
	Call(prefix, method string, params ...any) (json.RawMessage, error)
	Subscribe(prefix string, cb client.NotificationFunc) (int, error)
	Unsubscribe(prefix string) (int, error)
	SetParamConverter(device string, conv client.ParamConverter)
	GrabFrame(port int, cmd []byte) ([]byte, error)
	CloseImageStream() error
}

// DeviceID identifies one connected device.
type DeviceID struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	ProductID int    `json:"product_id"`
	VendorID  int    `json:"vendor_id"`
}

// DeviceInfo is the full identification record for one device.
type DeviceInfo struct {
	FWVersion string `json:"fw_version"`
	Index     int    `json:"index"`
	Name      string `json:"name"`
	ProductID int    `json:"product_id"`
	Serial    string `json:"serial"`
	VendorID  int    `json:"vendor_id"`
}

// TemperatureInfo is one temperature sensor reading.
type TemperatureInfo struct {
	Current    float64 `json:"current"`
	Device     string  `json:"device"`
	Max        float64 `json:"max"`
	Safe       float64 `json:"safe"`
	SensorName string  `json:"sensor_name"`
}

// Device is the base shared by every device wrapper. It carries the wire
// name ("touchmat", or "touchmat@1" for an indexed device) and the
// notification parameter converter of the concrete device class.
type Device struct {
	caller Caller
	name   string
	conv   client.ParamConverter
}

// newDevice builds the base for a wrapper. An index selects one of
// several devices of the same class; SoHal treats the bare name as an
// alias for "@0".
func newDevice(c Caller, name string, index []int) Device {
	if len(index) > 0 {
		name = fmt.Sprintf("%s@%d", name, index[0])
	}
	return Device{caller: c, name: name}
}

// call decodes the result of one device method into T. A null or absent
// result yields the zero value.
func call[T any](d *Device, method string, params ...any) (T, error) {
	var zero T
	raw, err := d.caller.Call(d.name, method, params...)
	if err != nil {
		return zero, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("decoding %s.%s result: %w", d.name, method, err)
	}
	return v, nil
}

// callVoid issues one device method whose result is not interesting.
func callVoid(d *Device, method string, params ...any) error {
	_, err := d.caller.Call(d.name, method, params...)
	return err
}

// Name returns the device's wire name, including the index suffix when
// one was given.
func (d *Device) Name() string { return d.name }

// Open opens the device. SoHal reference counts open calls across
// clients; the returned count is the number of clients that currently
// have the device open.
func (d *Device) Open() (int, error) { return call[int](d, "open") }

// Close closes the device, returning the remaining open count.
func (d *Device) Close() (int, error) { return call[int](d, "close") }

// OpenCount returns the number of clients that have the device open.
func (d *Device) OpenCount() (int, error) { return call[int](d, "open_count") }

// FactoryDefault restores the device to its default settings.
func (d *Device) FactoryDefault() error { return callVoid(d, "factory_default") }

// Info returns the device identification record.
func (d *Device) Info() (DeviceInfo, error) { return call[DeviceInfo](d, "info") }

// IsDeviceConnected reports whether the device hardware is present.
func (d *Device) IsDeviceConnected() (bool, error) {
	return call[bool](d, "is_device_connected")
}

// Temperatures returns the readings of the device's temperature sensors,
// empty for devices without any.
func (d *Device) Temperatures() ([]TemperatureInfo, error) {
	return call[[]TemperatureInfo](d, "temperatures")
}

// Subscribe asks SoHal to send this device's notifications and registers
// cb to receive them, installing the device's parameter converter so the
// callback sees typed values.
func (d *Device) Subscribe(cb client.NotificationFunc) (int, error) {
	if d.conv != nil {
		d.caller.SetParamConverter(client.DeviceOf(d.name), d.conv)
	}
	return d.caller.Subscribe(d.name, cb)
}

// Unsubscribe stops this device's notifications.
func (d *Device) Unsubscribe() (int, error) {
	return d.caller.Unsubscribe(d.name)
}
