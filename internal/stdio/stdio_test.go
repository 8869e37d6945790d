package stdio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFrameDecodesWrittenRequest(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRequestFrame(&buf, Request{ID: "req-1", Action: ActionPing, Data: json.RawMessage(`{"x":1}`)}))

	decoded, err := ReadFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, "req-1", decoded.ID)
	assert.Equal(t, ActionPing, decoded.Action)
	assert.JSONEq(t, `{"x":1}`, string(decoded.Data))
}

func TestWriteFrameProducesReadableResponse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, Response{ID: "req-2", Result: map[string]string{"pong": "ok"}}))

	resp, err := readResponseFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, "req-2", resp.ID)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	lengthBuf := make([]byte, 4)
	// maxFrameBytes+1, little-endian.
	big := uint32(maxFrameBytes) + 1
	lengthBuf[0] = byte(big)
	lengthBuf[1] = byte(big >> 8)
	lengthBuf[2] = byte(big >> 16)
	lengthBuf[3] = byte(big >> 24)
	buf.Write(lengthBuf)

	_, err := ReadFrame(bufio.NewReader(&buf))
	assert.ErrorIs(t, err, errFrameTooLarge)
}

func TestReadFrameEOF(t *testing.T) {
	_, err := ReadFrame(bufio.NewReader(&bytes.Buffer{}))
	assert.ErrorIs(t, err, io.EOF)
}

type fakeDispatcher struct {
	calls []Action
}

func (f *fakeDispatcher) Dispatch(req Request) Response {
	f.calls = append(f.calls, req.Action)
	return Response{Result: "ok"}
}

func TestServeDispatchesUntilEOF(t *testing.T) {
	var wire bytes.Buffer
	require.NoError(t, writeRequestFrame(&wire, Request{ID: "1", Action: ActionPing}))
	require.NoError(t, writeRequestFrame(&wire, Request{ID: "2", Action: ActionGetHardwareInfo}))

	var out bytes.Buffer
	d := &fakeDispatcher{}
	err := Serve(&wire, &out, d, nil)
	require.NoError(t, err)
	assert.Equal(t, []Action{ActionPing, ActionGetHardwareInfo}, d.calls)

	br := bufio.NewReader(&out)
	first, err := readResponseFrame(br)
	require.NoError(t, err)
	assert.Equal(t, "1", first.ID)
	second, err := readResponseFrame(br)
	require.NoError(t, err)
	assert.Equal(t, "2", second.ID)
}

func writeRequestFrame(w io.Writer, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	lengthBuf := make([]byte, 4)
	lengthBuf[0] = byte(len(body))
	lengthBuf[1] = byte(len(body) >> 8)
	lengthBuf[2] = byte(len(body) >> 16)
	lengthBuf[3] = byte(len(body) >> 24)
	if _, err := w.Write(lengthBuf); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func readResponseFrame(r *bufio.Reader) (Response, error) {
	var resp Response
	lengthBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthBuf); err != nil {
		return resp, err
	}
	length := uint32(lengthBuf[0]) | uint32(lengthBuf[1])<<8 | uint32(lengthBuf[2])<<16 | uint32(lengthBuf[3])<<24
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return resp, err
	}
	return resp, json.Unmarshal(body, &resp)
}
