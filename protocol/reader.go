package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// DefaultChunkSize is the initial read buffer of a LineReader.
const DefaultChunkSize = 64 * 1024

// LineReader splits a stream into lines. A line longer than the buffer is
// assembled from several reads instead of failing, and "\r\n" and "\n" both
// end a line.
type LineReader struct {
	r   *bufio.Reader
	buf []byte
	eof bool
}

// NewLineReader wraps r. chunk <= 0 selects DefaultChunkSize.
func NewLineReader(r io.Reader, chunk int) *LineReader {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	return &LineReader{r: bufio.NewReaderSize(r, chunk)}
}

// ReadLine returns the next line without its terminator. The slice is only
// valid until the next call. A final unterminated line is returned before
// io.EOF.
func (l *LineReader) ReadLine() ([]byte, error) {
	if l.eof {
		return nil, io.EOF
	}
	l.buf = l.buf[:0]
	for {
		frag, err := l.r.ReadSlice('\n')
		l.buf = append(l.buf, frag...)
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			l.eof = true
			if len(l.buf) == 0 {
				return nil, io.EOF
			}
			break
		}
		return nil, err
	}
	line := bytes.TrimSuffix(l.buf, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line, nil
}
