package devices

import (
	"encoding/json"

	"hippy/client"
	"hippy/protocol"
)

// CameraResolution describes one resolution a camera stream supports.
type CameraResolution struct {
	Width  int                  `json:"width"`
	Height int                  `json:"height"`
	FPS    int                  `json:"fps"`
	Stream protocol.ImageStream `json:"stream"`
	Format protocol.ImageFormat `json:"format"`
}

// Camera is the base shared by the depthcamera, hirescamera and
// uvccamera wrappers. It adds stream control and frame grabbing on top
// of the common device methods.
type Camera struct {
	Device
	imagePort int
}

func newCamera(c Caller, name string, index []int) Camera {
	return Camera{Device: newDevice(c, name, index)}
}

// streamsParam builds the list-in-list wire form of a stream selection:
// the whole selection is one list-valued parameter.
func streamsParam(streams []protocol.ImageStream) []any {
	if len(streams) == 0 {
		return nil
	}
	names := make([]string, len(streams))
	for i, s := range streams {
		names[i] = s.String()
	}
	return []any{names}
}

// enableResult is the enable_streams result: the streaming server port
// and the streams now enabled.
type enableResult struct {
	Port    int                    `json:"port"`
	Streams []protocol.ImageStream `json:"streams"`
}

// AvailableResolutions lists every resolution the camera supports.
func (c *Camera) AvailableResolutions() ([]CameraResolution, error) {
	return call[[]CameraResolution](&c.Device, "available_resolutions")
}

// Close closes the device and, if the streaming socket is open, shuts it
// down as well.
func (c *Camera) Close() (int, error) {
	_ = c.caller.CloseImageStream()
	c.imagePort = 0
	return c.Device.Close()
}

// EnableStreams enables the given camera streams and records the
// streaming server port for subsequent frame grabs. With no arguments it
// acts as a get and returns the currently enabled streams. The depth
// stream must be enabled before the points stream can be.
func (c *Camera) EnableStreams(streams ...protocol.ImageStream) ([]protocol.ImageStream, error) {
	res, err := call[enableResult](&c.Device, "enable_streams", streamsParam(streams)...)
	if err != nil {
		return nil, err
	}
	c.imagePort = res.Port
	return res.Streams, nil
}

// DisableStreams disables the given camera streams. With no arguments it
// acts as a get and returns the currently enabled streams. When no
// streams remain enabled the streaming socket is closed.
func (c *Camera) DisableStreams(streams ...protocol.ImageStream) ([]protocol.ImageStream, error) {
	raw, err := c.caller.Call(c.name, "disable_streams", streamsParam(streams)...)
	if err != nil {
		return nil, err
	}
	var enabled []protocol.ImageStream
	if err := json.Unmarshal(raw, &enabled); err != nil {
		// SoHal versions prior to 2.017.08.24 wrapped the list in an
		// object.
		var compat enableResult
		if err2 := json.Unmarshal(raw, &compat); err2 != nil {
			return nil, err
		}
		enabled = compat.Streams
	}
	if len(enabled) == 0 {
		_ = c.caller.CloseImageStream()
		c.imagePort = 0
	}
	return enabled, nil
}

// EnableFilter enables the named frame filter (currently "ir_gamma")
// and returns the descriptor to pass to GrabFrame.
func (c *Camera) EnableFilter(name string) (int, error) {
	return call[int](&c.Device, "enable_filter", name)
}

// GrabFrame returns the next frame captured from the given streams,
// which must already be enabled. filter is a descriptor obtained from
// EnableFilter, or 0 for an unfiltered frame.
func (c *Camera) GrabFrame(filter uint8, streams ...protocol.ImageStream) ([]protocol.Frame, error) {
	return c.grab(protocol.FrameSync|filter, streams)
}

// GrabFrameAsync returns the most recent frame already received from the
// given streams without waiting for a new capture.
func (c *Camera) GrabFrameAsync(filter uint8, streams ...protocol.ImageStream) ([]protocol.Frame, error) {
	return c.grab(protocol.FrameAsync|filter, streams)
}

func (c *Camera) grab(flags uint8, streams []protocol.ImageStream) ([]protocol.Frame, error) {
	if c.imagePort == 0 {
		// Refresh the streaming port from the device.
		if _, err := c.EnableStreams(); err != nil {
			return nil, err
		}
	}
	cmd := protocol.FrameCommand(protocol.StreamMask(streams), flags)
	data, err := c.caller.GrabFrame(c.imagePort, cmd)
	if err != nil {
		// SoHal may have closed and reopened the streaming server;
		// refresh the port and retry once.
		_ = c.caller.CloseImageStream()
		if _, err := c.EnableStreams(); err != nil {
			return nil, err
		}
		data, err = c.caller.GrabFrame(c.imagePort, cmd)
		if err != nil {
			return nil, protocol.NewError(0, "0",
				"Unable to connect to SoHal frame streaming server")
		}
	}
	return protocol.ParseFrameSet(data)
}

// StreamingResolution returns the resolution the camera is currently
// streaming at, or an error when it is not streaming.
func (c *Camera) StreamingResolution() (CameraResolution, error) {
	return call[CameraResolution](&c.Device, "streaming_resolution")
}

// SetStreamingResolution changes the streaming resolution.
func (c *Camera) SetStreamingResolution(res CameraResolution) (CameraResolution, error) {
	return call[CameraResolution](&c.Device, "streaming_resolution", res)
}

// convertCameraParams decodes the stream-list notifications shared by
// every camera class; anything else falls back to plain decoding.
// SoHal versions prior to 2.017.08.24 sent the stream list as separate
// parameters instead of one list-valued parameter.
func convertCameraParams(device string, method string, params []json.RawMessage) (any, error) {
	switch client.StripIndex(method) {
	case device + ".on_enable_streams", device + ".on_disable_streams":
		if len(params) == 1 {
			var streams []protocol.ImageStream
			if err := json.Unmarshal(params[0], &streams); err == nil {
				return streams, nil
			}
		}
		streams := make([]protocol.ImageStream, 0, len(params))
		for _, p := range params {
			var s protocol.ImageStream
			if err := json.Unmarshal(p, &s); err != nil {
				return nil, err
			}
			streams = append(streams, s)
		}
		return streams, nil
	}
	return client.DefaultParams(method, params)
}
