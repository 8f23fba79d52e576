package protocol

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// ErrLineTooLong is returned for a command line longer than the configured
// limit. The whole line has been consumed when it is returned.
var ErrLineTooLong = errors.New("line too long")

// LineReader splits a stream into command lines of bounded length. Lines
// over the limit are consumed and reported as ErrLineTooLong, and reading
// continues with the next line.
type LineReader struct {
	r   *bufio.Reader
	max int
}

// NewLineReader reads lines of at most max bytes from r
func NewLineReader(r io.Reader, max int) *LineReader {
	return &LineReader{r: bufio.NewReader(r), max: max}
}

// ReadLine returns the next line without its terminator. A final line with
// no newline is returned before io.EOF.
func (lr *LineReader) ReadLine() (string, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := lr.r.ReadSlice('\n')

		if !tooLong {
			n := len(chunk)
			if n > 0 && chunk[n-1] == '\n' {
				n--
			}
			if len(line)+n > lr.max {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && (len(line) > 0 || tooLong):
		default:
			return "", err
		}

		if tooLong {
			return "", ErrLineTooLong
		}
		return strings.TrimRight(string(line), "\r\n"), nil
	}
}
