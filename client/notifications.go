package client

import (
	"encoding/json"
	"log/slog"
	"strings"

	"hippy/protocol"
)

// NotificationFunc receives server notifications. method is the full
// notification name (for example "touchmat.on_open"); params is the
// decoded payload, already run through the device's parameter converter
// when one is registered.
//
// Each invocation runs on its own goroutine, so a slow or blocking
// callback never stalls the connection or other notifications.
type NotificationFunc func(method string, params any)

// ParamConverter decodes the raw parameters of a notification into the
// typed value handed to the subscriber. Converters are registered per
// device so each wrapper can produce its own enums and structs.
type ParamConverter func(method string, params []json.RawMessage) (any, error)

// Subscribe registers cb as the notification callback and asks the named
// device to start sending notifications. It returns the server's
// subscriber count. A nil callback is rejected as an invalid parameter.
func (c *Client) Subscribe(prefix string, cb NotificationFunc) (int, error) {
	if cb == nil {
		return 0, protocol.InvalidParameterError()
	}
	c.cbMu.Lock()
	c.subscriber = cb
	c.cbMu.Unlock()

	raw, err := c.Call(prefix, "subscribe")
	if err != nil {
		return 0, err
	}
	return decodeCount(raw)
}

// Unsubscribe asks the named device to stop sending notifications and
// clears the callback. It returns the remaining subscriber count.
func (c *Client) Unsubscribe(prefix string) (int, error) {
	raw, err := c.Call(prefix, "unsubscribe")
	if err != nil {
		return 0, err
	}
	c.cbMu.Lock()
	c.subscriber = nil
	c.cbMu.Unlock()
	return decodeCount(raw)
}

func decodeCount(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var count int
	if err := json.Unmarshal(raw, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// SetParamConverter registers conv for notifications from the named
// device ("touchmat", "hirescamera", ...). A nil converter removes the
// registration and restores the default decoding.
func (c *Client) SetParamConverter(device string, conv ParamConverter) {
	c.convMu.Lock()
	defer c.convMu.Unlock()
	if conv == nil {
		delete(c.converters, device)
		return
	}
	c.converters[device] = conv
}

// dispatch fans a notification out to the subscriber on a fresh
// goroutine. Notifications with no subscriber, or whose parameters fail
// to decode, are dropped.
func (c *Client) dispatch(msg *protocol.Message) {
	c.cbMu.Lock()
	cb := c.subscriber
	c.cbMu.Unlock()
	if cb == nil {
		return
	}
	params, err := c.convertParams(msg.Method, msg.Params)
	if err != nil {
		slog.Warn("hippy: dropping notification with undecodable params",
			"method", msg.Method, "err", err)
		return
	}
	go cb(msg.Method, params)
}

func (c *Client) convertParams(method string, raw []json.RawMessage) (any, error) {
	c.convMu.RLock()
	conv := c.converters[DeviceOf(method)]
	c.convMu.RUnlock()
	if conv != nil {
		return conv(method, raw)
	}
	return DefaultParams(method, raw)
}

// DeviceOf extracts the device name from a notification method,
// dropping any "@index" suffix: "projector@1.on_open" yields
// "projector".
func DeviceOf(method string) string {
	name, _, _ := strings.Cut(method, ".")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return name
}

// StripIndex removes the "@index" device suffix from a method name so
// converters can match on the plain form: "projector@1.on_open" yields
// "projector.on_open".
func StripIndex(method string) string {
	name, rest, found := strings.Cut(method, ".")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if !found {
		return name
	}
	return name + "." + rest
}

// DefaultParams is the parameter decoding used when no converter is
// registered: the first parameter decoded as plain JSON, or nil when the
// notification carries none.
func DefaultParams(_ string, raw []json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw[0], &v); err != nil {
		return nil, err
	}
	return v, nil
}
