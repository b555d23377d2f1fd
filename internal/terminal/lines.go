package terminal

import (
	"bufio"
	"io"
)

// Lines supplies input lines on demand. Receive from C, then call Got.
type Lines interface {
	C() <-chan string
	Got()
}

// LineReader reads a line from its input only after one is requested, so
// the terminal is left alone between requests (e.g. while the task viewer
// owns it). The channel is closed at EOF.
type LineReader struct {
	want    chan struct{}
	lines   chan string
	pending bool
}

// NewLineReader starts reading in on demand.
func NewLineReader(in io.Reader) *LineReader {
	l := &LineReader{
		want:  make(chan struct{}, 1),
		lines: make(chan string),
	}
	go func() {
		defer close(l.lines)
		scanner := bufio.NewScanner(in)
		for range l.want {
			if !scanner.Scan() {
				return
			}
			l.lines <- scanner.Text()
		}
	}()
	return l
}

// C requests the next line, unless a request is already outstanding, and
// returns the channel it will arrive on.
func (l *LineReader) C() <-chan string {
	if !l.pending {
		select {
		case l.want <- struct{}{}:
		default:
		}
		l.pending = true
	}
	return l.lines
}

// Got marks the outstanding request as served.
func (l *LineReader) Got() {
	l.pending = false
}
