package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Delimiter terminates every frame on the wire.
const Delimiter = '\n'

// MaxFrameSize bounds how many bytes a NewDecoder buffers while waiting for
// a delimiter.
const MaxFrameSize = 1 << 20

// Encode serializes v as a single frame.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return append(data, Delimiter), nil
}

// WriteFrame encodes v and writes it to w in a single Write call.
func WriteFrame(w io.Writer, v any) error {
	frame, err := Encode(v)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// Decoder accumulates bytes from a stream and splits them into frames.
// It performs no I/O and is not safe for concurrent use.
type Decoder struct {
	buf []byte
	max int
	// skipping is set while the rest of an oversized frame is dropped.
	skipping bool
}

// NewDecoder returns a Decoder with the default MaxFrameSize.
func NewDecoder() *Decoder {
	return NewDecoderSize(MaxFrameSize)
}

// NewDecoderSize returns a Decoder that buffers at most limit bytes of an
// incomplete frame. A limit of zero or less means no limit.
func NewDecoderSize(limit int) *Decoder {
	return &Decoder{max: limit}
}

// Feed appends p to the internal buffer and returns every complete,
// non-blank segment, trimmed of surrounding whitespace. The trailing partial
// segment stays buffered for the next call.
//
// If the buffered partial segment grows beyond the limit, ErrFrameTooLarge is
// returned once along with any segments completed before it, and every byte
// up to and including the frame's delimiter is dropped. No part of an
// oversized frame is ever returned as a segment.
func (d *Decoder) Feed(p []byte) ([][]byte, error) {
	if d.skipping {
		i := bytes.IndexByte(p, Delimiter)
		if i < 0 {
			return nil, nil
		}
		d.skipping = false
		p = p[i+1:]
	}
	d.buf = append(d.buf, p...)

	var segments [][]byte
	for {
		i := bytes.IndexByte(d.buf, Delimiter)
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(d.buf[:i])
		d.buf = d.buf[i+1:]
		if len(line) == 0 {
			continue
		}
		seg := make([]byte, len(line))
		copy(seg, line)
		segments = append(segments, seg)
	}

	if d.max > 0 && len(d.buf) > d.max {
		d.buf = nil
		d.skipping = true
		return segments, ErrFrameTooLarge
	}
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return segments, nil
}

// Buffered reports how many bytes of an incomplete frame are held.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// DecodeRequest parses a segment into a Request. The segment must be a JSON
// object.
func DecodeRequest(seg []byte) (*Request, error) {
	var req Request
	if err := decodeObject(seg, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// DecodeResponse parses a segment into a Response.
func DecodeResponse(seg []byte) (*Response, error) {
	var resp Response
	if err := decodeObject(seg, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func decodeObject(seg []byte, v any) error {
	seg = bytes.TrimSpace(seg)
	if len(seg) == 0 || seg[0] != '{' {
		return ErrInvalidFrame
	}
	if err := json.Unmarshal(seg, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	return nil
}
