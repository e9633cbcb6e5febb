package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// The frame streaming server speaks a fixed binary protocol: an 8-byte
// main header followed by, for each stream in the set, a 16-byte stream
// header and the raw pixel payload. All multi-byte fields are
// little-endian.

const (
	// FrameVersion is the frame protocol version this codec understands.
	FrameVersion = 1

	// FrameSync requests a frame captured after the command arrives;
	// FrameAsync returns the most recent frame immediately.
	FrameSync  = 0
	FrameAsync = 1

	mainHeaderLen   = 8
	streamHeaderLen = 16
	errorRecordLen  = 15
)

var (
	frameMagic  = [2]byte{0x50, 0xa1}
	frameDevice = [2]byte{0xde, 0xca}
)

// ImageStream identifies one camera stream as a bit in the stream mask.
type ImageStream uint8

const (
	StreamColor  ImageStream = 0x1
	StreamDepth  ImageStream = 0x2
	StreamIR     ImageStream = 0x4
	StreamPoints ImageStream = 0x8
)

var imageStreamNames = map[ImageStream]string{
	StreamColor:  "color",
	StreamDepth:  "depth",
	StreamIR:     "ir",
	StreamPoints: "points",
}

func (s ImageStream) String() string {
	if name, ok := imageStreamNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ImageStream(%d)", uint8(s))
}

// MarshalJSON encodes the stream by its wire name.
func (s ImageStream) MarshalJSON() ([]byte, error) {
	name, ok := imageStreamNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown image stream: %d", uint8(s))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a stream wire name.
func (s *ImageStream) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	stream, ok := ImageStreamFromName(name)
	if !ok {
		return fmt.Errorf("unknown image stream: %q", name)
	}
	*s = stream
	return nil
}

// ImageStreamFromName maps a wire name back to its stream bit.
func ImageStreamFromName(name string) (ImageStream, bool) {
	for s, n := range imageStreamNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// StreamMask combines streams into the bitmask used in frame commands.
func StreamMask(streams []ImageStream) uint8 {
	var mask uint8
	for _, s := range streams {
		mask |= uint8(s)
	}
	return mask
}

// MaskStreams expands a stream bitmask into individual streams, in
// ascending bit order, which is also the order stream headers appear in
// a frame set.
func MaskStreams(mask uint8) []ImageStream {
	var streams []ImageStream
	for bit := uint8(1); bit != 0 && mask != 0; bit <<= 1 {
		if mask&bit != 0 {
			streams = append(streams, ImageStream(bit))
			mask &^= bit
		}
	}
	return streams
}

// ImageFormat identifies the pixel format of one stream's payload.
type ImageFormat uint8

const (
	FormatUnknown    ImageFormat = 0x0
	FormatGray16     ImageFormat = 0x1
	FormatRGB888     ImageFormat = 0x2
	FormatYUV422     ImageFormat = 0x3
	FormatYUYV       ImageFormat = 0x4
	FormatGray8      ImageFormat = 0x5
	FormatDepthMM    ImageFormat = 0x6
	FormatBGRA8888   ImageFormat = 0x7
	FormatPointsMM32 ImageFormat = 0x8
	FormatYUY2       ImageFormat = 0x9
	FormatUYVY       ImageFormat = 0xa
	FormatNV12       ImageFormat = 0xb
)

var imageFormatNames = map[ImageFormat]string{
	FormatUnknown:    "unknown",
	FormatGray16:     "gray_16",
	FormatRGB888:     "rgb_888",
	FormatYUV422:     "yuv_422",
	FormatYUYV:       "yuyv",
	FormatGray8:      "gray_8",
	FormatDepthMM:    "depth_mm",
	FormatBGRA8888:   "bgra_8888",
	FormatPointsMM32: "points_mm32f",
	FormatYUY2:       "yuy2",
	FormatUYVY:       "uyvy",
	FormatNV12:       "nv12",
}

func (f ImageFormat) String() string {
	if name, ok := imageFormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("ImageFormat(%d)", uint8(f))
}

// MarshalJSON encodes the format by its wire name.
func (f ImageFormat) MarshalJSON() ([]byte, error) {
	name, ok := imageFormatNames[f]
	if !ok {
		return nil, fmt.Errorf("unknown image format: %d", uint8(f))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a format wire name.
func (f *ImageFormat) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	format, ok := ImageFormatFromName(name)
	if !ok {
		return fmt.Errorf("unknown image format: %q", name)
	}
	*f = format
	return nil
}

// ImageFormatFromName maps a wire name back to its format id.
func ImageFormatFromName(name string) (ImageFormat, bool) {
	for f, n := range imageFormatNames {
		if n == name {
			return f, true
		}
	}
	return 0, false
}

// BitsPerPixel returns the payload size of one pixel in this format.
func (f ImageFormat) BitsPerPixel() (int, error) {
	switch f {
	case FormatGray16, FormatYUV422, FormatYUYV, FormatDepthMM, FormatYUY2, FormatUYVY:
		return 16, nil
	case FormatRGB888:
		return 24, nil
	case FormatGray8:
		return 8, nil
	case FormatBGRA8888:
		return 32, nil
	case FormatPointsMM32:
		return 12 * 8, nil
	case FormatNV12:
		return 12, nil
	}
	return 0, NewError(0, "0", fmt.Sprintf("Unknown image format: %d", uint8(f)))
}

// Frame is one decoded stream image from a frame set.
type Frame struct {
	Stream    ImageStream
	Format    ImageFormat
	Width     int
	Height    int
	Index     int
	Timestamp uint64
	Data      []byte
}

// FrameCommand builds the 8-byte binary request sent to the frame server:
// magic, device tag, version, flags (sync bit or'd with a filter
// descriptor), stream mask and a trailing zero byte.
func FrameCommand(mask uint8, flags uint8) []byte {
	return []byte{
		frameMagic[0], frameMagic[1],
		frameDevice[0], frameDevice[1],
		FrameVersion, flags, mask, 0x00,
	}
}

// ParseFrameSet decodes one binary reply from the frame server into the
// frames it carries, one per stream bit in the main header. A reply whose
// main header has the error flag set carries a 15-byte error record
// instead of stream data; it is surfaced as an *Error.
func ParseFrameSet(data []byte) ([]Frame, error) {
	if len(data) < mainHeaderLen {
		return nil, NewError(0, "0", "Invalid frame header received")
	}
	if data[0] != frameMagic[0] || data[1] != frameMagic[1] {
		return nil, NewError(0, "0", "Invalid frame header received")
	}
	if data[2] != frameDevice[0] || data[3] != frameDevice[1] {
		return nil, NewError(0, "0", "Invalid frame header received")
	}
	if data[4] != FrameVersion {
		return nil, NewError(0, "0", "Invalid frame header received")
	}
	mask := data[5]
	if errFlag := data[6]; errFlag != 0 {
		if len(data) < mainHeaderLen+errorRecordLen {
			return nil, NewError(0, "0", "Invalid frame header received")
		}
		rec := data[mainHeaderLen:]
		code := binary.LittleEndian.Uint32(rec[0:4])
		fileID := binary.LittleEndian.Uint32(rec[4:8])
		gitID := string(rec[8:15])
		return nil, NewError(0, "0", fmt.Sprintf(
			"Frame header contained error code: %s:%08x:%08x", gitID, fileID, code))
	}

	offset := mainHeaderLen
	streams := MaskStreams(mask)
	frames := make([]Frame, 0, len(streams))
	for range streams {
		if len(data) < offset+streamHeaderLen {
			return nil, NewError(0, "0", "Truncated frame stream header")
		}
		h := data[offset : offset+streamHeaderLen]
		frame := Frame{
			Width:     int(binary.LittleEndian.Uint16(h[0:2])),
			Height:    int(binary.LittleEndian.Uint16(h[2:4])),
			Index:     int(binary.LittleEndian.Uint16(h[4:6])),
			Stream:    ImageStream(h[6]),
			Format:    ImageFormat(h[7]),
			Timestamp: binary.LittleEndian.Uint64(h[8:16]),
		}
		offset += streamHeaderLen

		bpp, err := frame.Format.BitsPerPixel()
		if err != nil {
			return nil, err
		}
		payloadLen := frame.Width * frame.Height * bpp / 8
		if len(data) < offset+payloadLen {
			return nil, NewError(0, "0", "Truncated frame payload")
		}
		frame.Data = data[offset : offset+payloadLen]
		offset += payloadLen
		frames = append(frames, frame)
	}
	return frames, nil
}
