package transport

import (
	"context"
	"errors"
	"io"

	"github.com/haukened/focusd/internal/focus/common/log"
	"github.com/haukened/focusd/internal/focus/gateways/wire"
)

// serveStream handles framed requests from r until the stream ends, the
// context is cancelled or stop is closed. Each request is answered on w
// before the next frame is read.
func serveStream(ctx context.Context, r io.Reader, w io.Writer, codec wire.MessageCodec, handler RequestHandler, logger log.Logger, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		data, err := codec.ReadMessage(r)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, wire.ErrEmptyFrame):
			logger.Warn(nil, "Ignoring empty message frame")
			continue
		default:
			// The stream position is unknown after a bad frame.
			return err
		}

		resp := handleFrame(ctx, data, codec, handler, logger)
		out, err := codec.EncodeResponse(resp)
		if err != nil {
			logger.Error(map[string]any{"error": err.Error()}, "Failed to encode response")
			out, err = codec.EncodeResponse(wire.Fail(err))
			if err != nil {
				return err
			}
		}
		if err := codec.WriteMessage(w, out); err != nil {
			if errors.Is(err, wire.ErrFrameTooLarge) {
				logger.Warn(map[string]any{"size": len(out)}, "Response too large for native messaging")
				out, err = codec.EncodeResponse(wire.Fail(err))
				if err == nil {
					err = codec.WriteMessage(w, out)
				}
			}
			if err != nil {
				return err
			}
		}
	}
}

func handleFrame(ctx context.Context, data []byte, codec wire.MessageCodec, handler RequestHandler, logger log.Logger) wire.Response {
	req, err := codec.DecodeRequest(data)
	if err != nil {
		logger.Warn(map[string]any{
			"error": err.Error(),
			"size":  len(data),
		}, "Failed to decode request")
		return wire.Fail(err)
	}
	return handler.HandleRequest(ctx, req)
}
