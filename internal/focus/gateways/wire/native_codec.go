package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// MaxInboundMessage is the largest frame the browser may send a host.
	MaxInboundMessage = 64 << 20
	// MaxOutboundMessage is the largest frame a host may send the browser.
	MaxOutboundMessage = 1 << 20
)

var (
	// ErrFrameTooLarge is returned for frames over the size limits.
	ErrFrameTooLarge = errors.New("native message exceeds size limit")
	// ErrEmptyFrame is returned for zero-length frames.
	ErrEmptyFrame = errors.New("native message is empty")
)

type nativeCodec struct{}

// NewNativeCodec returns the native messaging codec.
func NewNativeCodec() MessageCodec {
	return &nativeCodec{}
}

// ReadMessage reads one frame. A clean end of stream before the length
// prefix returns io.EOF; a stream cut inside a frame returns io.ErrUnexpectedEOF.
func (c *nativeCodec) ReadMessage(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n == 0 {
		return nil, ErrEmptyFrame
	}
	if n > MaxInboundMessage {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// WriteMessage writes payload as one frame in a single Write call.
func (c *nativeCodec) WriteMessage(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyFrame
	}
	if len(payload) > MaxOutboundMessage {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	frame := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)
	_, err := w.Write(frame)
	return err
}

func (c *nativeCodec) DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("malformed request: %w", err)
	}
	req.Action = strings.TrimSpace(req.Action)
	if req.Action == "" {
		return Request{}, errors.New("malformed request: missing action")
	}
	return req, nil
}

func (c *nativeCodec) EncodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}
