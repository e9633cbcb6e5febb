package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Version is the JSON-RPC protocol version SoHal speaks.
const Version = "2.0"

// Error is the typed error used for everything SoHal or the connection
// surfaces: the wire format of a response's "error" object, and the
// error value returned from any client call.
type Error struct {
	Code    int    `json:"code"`
	Data    string `json:"data"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message + " (" + e.Data + ")"
}

// NewError creates an Error with the given code, data and message.
func NewError(code int, data, message string) *Error {
	return &Error{Code: code, Data: data, Message: message}
}

// ConnectionError is returned when no candidate port validated as SoHal,
// or when a call is issued against a connection that is no longer open.
func ConnectionError() *Error {
	return &Error{Code: 0x200, Data: "200", Message: "Unable to connect to SoHal"}
}

// ClosedError is recorded as the connection's fatal cause when the client
// closes the connection itself.
func ClosedError() *Error {
	return &Error{Code: 0x200, Data: "200", Message: "Connection closed"}
}

// InvalidParameterError is returned for local misuse, such as subscribing
// with a nil callback or passing a value outside an enumeration.
func InvalidParameterError() *Error {
	return &Error{Code: 0x204, Data: "204", Message: "Invalid parameter"}
}

// Request is an outbound JSON-RPC 2.0 request. Params is always sent as an
// array; NewRequest wraps a single parameter into a one-element list the
// way the SoHal wire protocol requires.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// NewRequest builds a request for the given correlation id and method.
// []byte parameters are encoded as latin-1 strings.
func NewRequest(id any, method string, params ...any) *Request {
	var encoded []any
	if len(params) > 0 {
		encoded = make([]any, len(params))
		for i, p := range params {
			if b, ok := p.([]byte); ok {
				encoded[i] = Latin1String(b)
			} else {
				encoded[i] = p
			}
		}
	}
	return &Request{JSONRPC: Version, ID: id, Method: method, Params: encoded}
}

// Encode serializes the request to a JSON text frame.
func (r *Request) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding request %v: %w", r.ID, err)
	}
	return data, nil
}

// Message is an inbound message from SoHal, either a response (non-empty
// ID, carrying Result or Error) or a notification (no ID, carrying Method
// and Params).
type Message struct {
	JSONRPC string            `json:"jsonrpc,omitempty"`
	ID      json.RawMessage   `json:"id,omitempty"`
	Method  string            `json:"method,omitempty"`
	Params  []json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage   `json:"result,omitempty"`
	Error   *Error            `json:"error,omitempty"`
}

// DecodeMessage parses one inbound JSON text frame.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	return &msg, nil
}

// IsResponse reports whether the message carries a correlation id.
func (m *Message) IsResponse() bool {
	return len(m.ID) > 0 && string(m.ID) != "null"
}

// CorrelationID returns the message id as a string. String ids are
// unquoted; numeric ids (as used by the echo validation probe) are
// returned in their decimal form.
func (m *Message) CorrelationID() string {
	var s string
	if err := json.Unmarshal(m.ID, &s); err == nil {
		return s
	}
	return string(m.ID)
}

// placeholderPrefix namespaces ids generated before a connection is
// established and the local port is known.
const placeholderPrefix = "None"

// IDGenerator produces connection-scoped correlation ids of the form
// "<localport>:<seq>", with seq starting at 1 and strictly increasing for
// the lifetime of one connection. Safe for concurrent use.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    uint64
}

// NewIDGenerator creates a generator with the placeholder prefix.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{prefix: placeholderPrefix}
}

// Reset restarts the sequence and namespaces subsequent ids with the
// local TCP port of a freshly established connection.
func (g *IDGenerator) Reset(localPort int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prefix = strconv.Itoa(localPort)
	g.seq = 0
}

// Next returns the next correlation id.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return g.prefix + ":" + strconv.FormatUint(g.seq, 10)
}

// Latin1String encodes raw bytes as a string with one rune per byte, the
// representation SoHal uses for byte buffers inside JSON params.
func Latin1String(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}

// Latin1Bytes decodes a latin-1 string produced by Latin1String (or by
// SoHal) back into raw bytes.
func Latin1Bytes(s string) ([]byte, error) {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xff {
			return nil, fmt.Errorf("latin-1 decode: rune %q out of range", r)
		}
		b = append(b, byte(r))
	}
	return b, nil
}
