package rpc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	contentLengthPrefix = "Content-Length: "
	headerTerminator    = "\r\n\r\n"

	// DefaultMaxFrameSize bounds the body of a single inbound frame.
	DefaultMaxFrameSize = 64 << 20 // 64MB
)

// ErrMalformedFrame is returned by [ReadFrame] when the header does not
// match "Content-Length: <N>\r\n\r\n".
var ErrMalformedFrame = errors.New("malformed frame header")

// ErrFrameTooLarge is returned by [ReadFrame] when a well-formed frame
// declares a body above the size limit. The body is consumed so the stream
// stays aligned on the next frame.
var ErrFrameTooLarge = errors.New("frame body too large")

// EncodeFrame wraps payload in a Content-Length header.
func EncodeFrame(payload []byte) []byte {
	header := contentLengthPrefix + strconv.Itoa(len(payload)) + headerTerminator
	frame := make([]byte, 0, len(header)+len(payload))
	frame = append(frame, header...)
	return append(frame, payload...)
}

// WriteFrame writes a single framed payload to w.
func WriteFrame(w io.Writer, payload []byte) error {
	_, err := w.Write(EncodeFrame(payload))
	return err
}

// ReadFrame reads one frame from r and returns its body.
//
// Any number of blank lines ("\r\n") may precede the header. The header must
// be exactly "Content-Length: " followed by decimal digits and a blank-line
// terminator; exactly that many body bytes are then read. Bodies larger than
// maxSize are read and discarded, and [ErrFrameTooLarge] is returned. A
// maxSize <= 0 means [DefaultMaxFrameSize].
func ReadFrame(r *bufio.Reader, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}

	n, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if n > maxSize {
		if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
			return nil, fmt.Errorf("%w: body of %d bytes exceeds limit of %d, discard failed: %v", ErrFrameTooLarge, n, maxSize, err)
		}
		return nil, fmt.Errorf("%w: body of %d bytes exceeds limit of %d", ErrFrameTooLarge, n, maxSize)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}
	return body, nil
}

// readHeader consumes leading blank lines and the header, returning the
// declared content length.
func readHeader(r *bufio.Reader) (int, error) {
	var line []byte
	for {
		l, err := r.ReadSlice('\n')
		if err != nil {
			if errors.Is(err, bufio.ErrBufferFull) {
				return 0, fmt.Errorf("%w: header line too long", ErrMalformedFrame)
			}
			return 0, fmt.Errorf("failed to read frame header: %w", err)
		}
		if bytes.Equal(l, []byte("\r\n")) {
			continue
		}
		line = l
		break
	}

	if !bytes.HasPrefix(line, []byte(contentLengthPrefix)) || !bytes.HasSuffix(line, []byte("\r\n")) {
		return 0, fmt.Errorf("%w: unexpected header %q", ErrMalformedFrame, line)
	}
	digits := line[len(contentLengthPrefix) : len(line)-2]
	if len(digits) == 0 {
		return 0, fmt.Errorf("%w: missing content length", ErrMalformedFrame)
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: invalid content length %q", ErrMalformedFrame, digits)
		}
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid content length %q", ErrMalformedFrame, digits)
	}

	// the header line ends in "\r\n", the terminator needs one more
	term := make([]byte, 2)
	if _, err := io.ReadFull(r, term); err != nil {
		return 0, fmt.Errorf("failed to read frame header: %w", err)
	}
	if !bytes.Equal(term, []byte("\r\n")) {
		return 0, fmt.Errorf("%w: missing header terminator", ErrMalformedFrame)
	}

	return n, nil
}
