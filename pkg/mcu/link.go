package mcu

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

var log = logrus.WithFields(logrus.Fields{
	"pkg": "mcu",
})

// maxFrame bounds a frame; longer input is noise.
const maxFrame = 256

// Open opens the serial link to a remote controller.
func Open(path string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return port, nil
}

// Reader reads frames addressed to one controller from a stream.
type Reader struct {
	id int
	sc *bufio.Scanner
}

// NewReader returns a Reader for controller id.
func NewReader(r io.Reader, id int) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, maxFrame), maxFrame)
	sc.Split(splitFrames)
	return &Reader{id: id, sc: sc}
}

// Next returns the next frame. Parse errors are returned per frame and the
// reader stays usable; io.EOF marks the end of the stream.
func (r *Reader) Next() (Command, error) {
	for r.sc.Scan() {
		frame := r.sc.Text()
		if strings.TrimSpace(frame) == "" {
			continue
		}
		return Parse(r.id, frame)
	}
	if err := r.sc.Err(); err != nil {
		return Command{}, err
	}
	return Command{}, io.EOF
}

func splitFrames(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\r'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Serve reads frames from r and hands every valid one to apply until the
// stream ends or ctx is cancelled. Bad frames are logged and skipped.
func Serve(ctx context.Context, r io.Reader, id int, apply func(Command)) error {
	rd := NewReader(r, id)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cmd, err := rd.Next()
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, ErrNotAddressed):
			continue
		case errors.Is(err, ErrMalformed), errors.Is(err, ErrInvalidCommand):
			log.WithError(err).Debug("dropping frame")
			continue
		case err != nil:
			return fmt.Errorf("read link: %w", err)
		}
		apply(cmd)
	}
}
