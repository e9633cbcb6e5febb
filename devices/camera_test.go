package devices

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"testing"

	"hippy/protocol"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFrameSet assembles a binary frame server reply with one gray_8
// stream payload.
func buildFrameSet(stream protocol.ImageStream, width, height int, payload []byte) []byte {
	data := []byte{0x50, 0xa1, 0xde, 0xca, protocol.FrameVersion, uint8(stream), 0x00, 0x00}
	header := make([]byte, 16)
	binary.LittleEndian.PutUint16(header[0:2], uint16(width))
	binary.LittleEndian.PutUint16(header[2:4], uint16(height))
	binary.LittleEndian.PutUint16(header[4:6], 7)
	header[6] = uint8(stream)
	header[7] = uint8(protocol.FormatGray8)
	binary.LittleEndian.PutUint64(header[8:16], 123456)
	data = append(data, header...)
	return append(data, payload...)
}

func TestEnableStreamsRecordsPort(t *testing.T) {
	fc := newFakeCaller(respondJSON(t, map[string]string{
		"depthcamera.enable_streams": `{"port":20652,"streams":["depth"]}`,
	}))
	cam := NewDepthCamera(fc)

	streams, err := cam.EnableStreams(protocol.StreamDepth)
	require.NoError(t, err)
	assert.Equal(t, []protocol.ImageStream{protocol.StreamDepth}, streams)
	assert.Equal(t, 20652, cam.imagePort)

	// The selection travels as one list-valued parameter of names.
	require.Len(t, fc.calls, 1)
	require.Len(t, fc.calls[0].params, 1)
	assert.Equal(t, []string{"depth"}, fc.calls[0].params[0])

	// Without arguments the call is a get and sends no parameters.
	_, err = cam.EnableStreams()
	require.NoError(t, err)
	assert.Empty(t, fc.calls[1].params)
}

func TestDisableStreamsClosesIdleSocket(t *testing.T) {
	responses := map[string]string{
		"uvccamera.enable_streams":  `{"port":20652,"streams":["color"]}`,
		"uvccamera.disable_streams": `["color"]`,
	}
	fc := newFakeCaller(func(prefix, method string, params []any) (json.RawMessage, error) {
		return json.RawMessage(responses[prefix+"."+method]), nil
	})
	cam := NewUVCCamera(fc)

	_, err := cam.EnableStreams(protocol.StreamColor)
	require.NoError(t, err)

	enabled, err := cam.DisableStreams()
	require.NoError(t, err)
	assert.Equal(t, []protocol.ImageStream{protocol.StreamColor}, enabled)
	assert.Zero(t, fc.streamCloses, "socket stays open while streams remain")

	responses["uvccamera.disable_streams"] = `[]`
	enabled, err = cam.DisableStreams(protocol.StreamColor)
	require.NoError(t, err)
	assert.Empty(t, enabled)
	assert.Equal(t, 1, fc.streamCloses)
	assert.Zero(t, cam.imagePort)
}

func TestDisableStreamsLegacyResult(t *testing.T) {
	fc := newFakeCaller(respondJSON(t, map[string]string{
		"depthcamera.disable_streams": `{"port":20652,"streams":["depth","ir"]}`,
	}))
	cam := NewDepthCamera(fc)

	enabled, err := cam.DisableStreams(protocol.StreamColor)
	require.NoError(t, err)
	assert.Equal(t, []protocol.ImageStream{protocol.StreamDepth, protocol.StreamIR}, enabled)
}

func TestGrabFrame(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6}
	fc := newFakeCaller(respondJSON(t, map[string]string{
		"depthcamera.enable_streams": `{"port":20652,"streams":["ir"]}`,
	}))
	fc.frames = func(port int, cmd []byte) ([]byte, error) {
		return buildFrameSet(protocol.StreamIR, 3, 2, payload), nil
	}
	cam := NewDepthCamera(fc)

	_, err := cam.EnableStreams(protocol.StreamIR)
	require.NoError(t, err)

	frames, err := cam.GrabFrame(0, protocol.StreamIR)
	require.NoError(t, err)
	require.Len(t, frames, 1)

	want := protocol.Frame{
		Stream:    protocol.StreamIR,
		Format:    protocol.FormatGray8,
		Width:     3,
		Height:    2,
		Index:     7,
		Timestamp: 123456,
		Data:      payload,
	}
	if diff := cmp.Diff(want, frames[0]); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []int{20652}, fc.grabPorts)
	require.Len(t, fc.grabCmds, 1)
	assert.Equal(t, protocol.FrameCommand(uint8(protocol.StreamIR), protocol.FrameSync), fc.grabCmds[0])
}

func TestGrabFrameWithoutPortEnablesFirst(t *testing.T) {
	fc := newFakeCaller(respondJSON(t, map[string]string{
		"hirescamera.enable_streams": `{"port":20652,"streams":["color"]}`,
	}))
	fc.frames = func(port int, cmd []byte) ([]byte, error) {
		return buildFrameSet(protocol.StreamColor, 2, 2, []byte{0, 0, 0, 0}), nil
	}
	cam := NewHiResCamera(fc)

	frames, err := cam.GrabFrameAsync(0, protocol.StreamColor)
	require.NoError(t, err)
	require.Len(t, frames, 1)

	// The grab fetched the streaming port on demand.
	require.Len(t, fc.calls, 1)
	assert.Equal(t, "enable_streams", fc.calls[0].method)
	// Async grabs set the async flag bit.
	assert.Equal(t, uint8(protocol.FrameAsync), fc.grabCmds[0][5])
}

func TestGrabFrameRetriesAfterStreamFailure(t *testing.T) {
	fc := newFakeCaller(respondJSON(t, map[string]string{
		"depthcamera.enable_streams": `{"port":20652,"streams":["depth"]}`,
	}))
	attempts := 0
	fc.frames = func(port int, cmd []byte) ([]byte, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("use of closed network connection")
		}
		return buildFrameSet(protocol.StreamDepth, 1, 1, []byte{0, 0}), nil
	}
	cam := NewDepthCamera(fc)

	_, err := cam.EnableStreams(protocol.StreamDepth)
	require.NoError(t, err)

	frames, err := cam.GrabFrame(0, protocol.StreamDepth)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, fc.streamCloses, "the dead socket is dropped before the retry")
}

func TestGrabFramePersistentFailure(t *testing.T) {
	fc := newFakeCaller(respondJSON(t, map[string]string{
		"depthcamera.enable_streams": `{"port":20652,"streams":["depth"]}`,
	}))
	fc.frames = func(port int, cmd []byte) ([]byte, error) {
		return nil, errors.New("use of closed network connection")
	}
	cam := NewDepthCamera(fc)

	_, err := cam.GrabFrame(0, protocol.StreamDepth)
	var perr *protocol.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Unable to connect to SoHal frame streaming server", perr.Message)
}

func TestCameraCloseShutsStreamSocket(t *testing.T) {
	fc := newFakeCaller(respondJSON(t, map[string]string{
		"hirescamera.enable_streams": `{"port":20652,"streams":["color"]}`,
		"hirescamera.close":          `0`,
	}))
	cam := NewHiResCamera(fc)

	_, err := cam.EnableStreams(protocol.StreamColor)
	require.NoError(t, err)

	count, err := cam.Close()
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 1, fc.streamCloses)
	assert.Zero(t, cam.imagePort)
}

func TestAvailableResolutions(t *testing.T) {
	fc := newFakeCaller(respondJSON(t, map[string]string{
		"hirescamera.available_resolutions": `[{"width":4416,"height":3312,"fps":6,"stream":"color","format":"nv12"}]`,
	}))
	cam := NewHiResCamera(fc)

	resolutions, err := cam.AvailableResolutions()
	require.NoError(t, err)
	require.Len(t, resolutions, 1)
	assert.Equal(t, protocol.StreamColor, resolutions[0].Stream)
	assert.Equal(t, protocol.FormatNV12, resolutions[0].Format)
}
