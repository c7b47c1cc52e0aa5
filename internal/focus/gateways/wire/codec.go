// Package wire encodes focusd requests and responses using the browser
// native messaging framing: a 32-bit little-endian length followed by UTF-8 JSON.
package wire

import "io"

// MessageCodec frames and encodes messages exchanged with the extension.
type MessageCodec interface {
	// Framing
	ReadMessage(r io.Reader) ([]byte, error)
	WriteMessage(w io.Writer, payload []byte) error

	// Payloads
	DecodeRequest(data []byte) (Request, error)
	EncodeResponse(resp Response) ([]byte, error)
}
