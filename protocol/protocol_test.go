package protocol

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestEncode(t *testing.T) {
	tests := []struct {
		name   string
		id     any
		method string
		params []any
		want   string
	}{
		{
			name:   "no params omits the field",
			id:     "123:1",
			method: "projector.on",
			want:   `{"jsonrpc":"2.0","id":"123:1","method":"projector.on"}`,
		},
		{
			name:   "single param is wrapped in a list",
			id:     "123:2",
			method: "system.echo",
			params: []any{"Marco"},
			want:   `{"jsonrpc":"2.0","id":"123:2","method":"system.echo","params":["Marco"]}`,
		},
		{
			name:   "numeric id for the validation probe",
			id:     0,
			method: "system.echo",
			params: []any{"token"},
			want:   `{"jsonrpc":"2.0","id":0,"method":"system.echo","params":["token"]}`,
		},
		{
			name:   "multiple params stay in order",
			id:     "123:3",
			method: "sbuttons.led_state",
			params: []any{"left", map[string]any{"mode": "on"}},
			want:   `{"jsonrpc":"2.0","id":"123:3","method":"sbuttons.led_state","params":["left",{"mode":"on"}]}`,
		},
		{
			name:   "byte buffer encodes as latin-1 string",
			id:     "123:4",
			method: "projector.flash",
			params: []any{[]byte{0x41, 0xe9}},
			want:   `{"jsonrpc":"2.0","id":"123:4","method":"projector.flash","params":["Aé"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := NewRequest(tt.id, tt.method, tt.params...).Encode()
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	t.Run("response with result", func(t *testing.T) {
		msg, err := DecodeMessage([]byte(`{"id":"55:1","result":"Marco"}`))
		require.NoError(t, err)
		assert.True(t, msg.IsResponse())
		assert.Equal(t, "55:1", msg.CorrelationID())
		assert.Equal(t, `"Marco"`, string(msg.Result))
		assert.Nil(t, msg.Error)
	})

	t.Run("response with error object", func(t *testing.T) {
		msg, err := DecodeMessage([]byte(
			`{"id":"55:2","error":{"code":516,"data":"204","message":"Invalid parameter"}}`))
		require.NoError(t, err)
		assert.True(t, msg.IsResponse())
		require.NotNil(t, msg.Error)
		assert.Equal(t, 516, msg.Error.Code)
		assert.Equal(t, "204", msg.Error.Data)
		assert.Equal(t, "Invalid parameter", msg.Error.Message)
	})

	t.Run("numeric id", func(t *testing.T) {
		msg, err := DecodeMessage([]byte(`{"id":0,"result":"tok"}`))
		require.NoError(t, err)
		assert.True(t, msg.IsResponse())
		assert.Equal(t, "0", msg.CorrelationID())
	})

	t.Run("notification has no id", func(t *testing.T) {
		msg, err := DecodeMessage([]byte(
			`{"jsonrpc":"2.0","method":"projector.on_state","params":["on"]}`))
		require.NoError(t, err)
		assert.False(t, msg.IsResponse())
		assert.Equal(t, "projector.on_state", msg.Method)
		require.Len(t, msg.Params, 1)
		assert.Equal(t, `"on"`, string(msg.Params[0]))
	})

	t.Run("malformed JSON is an error", func(t *testing.T) {
		_, err := DecodeMessage([]byte(`{"id":`))
		assert.Error(t, err)
	})
}

func TestErrorString(t *testing.T) {
	err := NewError(0x200, "200", "Unable to connect to SoHal")
	assert.Equal(t, "Unable to connect to SoHal (200)", err.Error())
}

func TestIDGenerator(t *testing.T) {
	g := NewIDGenerator()

	// Before a connection is established ids use the placeholder prefix.
	assert.Equal(t, "None:1", g.Next())
	assert.Equal(t, "None:2", g.Next())

	g.Reset(51234)
	assert.Equal(t, "51234:1", g.Next())
	assert.Equal(t, "51234:2", g.Next())

	// Reconnecting restarts the sequence under the new port namespace.
	g.Reset(51300)
	assert.Equal(t, "51300:1", g.Next())
}

func TestIDGeneratorConcurrent(t *testing.T) {
	g := NewIDGenerator()
	g.Reset(40000)

	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := g.Next()
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate id %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	assert.False(t, seen["40000:0"], "sequence must start at 1")
	assert.True(t, seen[fmt.Sprintf("40000:%d", workers*perWorker)])
}

func TestLatin1RoundTrip(t *testing.T) {
	buf := make([]byte, 256)
	for i := range buf {
		buf[i] = byte(i)
	}

	s := Latin1String(buf)
	got, err := Latin1Bytes(s)
	require.NoError(t, err)
	assert.Equal(t, buf, got)

	// The encoded form must survive JSON transport.
	data, err := json.Marshal(s)
	require.NoError(t, err)
	var back string
	require.NoError(t, json.Unmarshal(data, &back))
	got, err = Latin1Bytes(back)
	require.NoError(t, err)
	assert.Equal(t, buf, got)
}

func TestLatin1BytesRejectsWideRunes(t *testing.T) {
	_, err := Latin1Bytes("日本語")
	assert.Error(t, err)
}
