/*Package comm provides serial line communication primitives for lab hardware.

Most usages of this package will boil down to:
	1.  create a Device with the serial.Config appropriate for your hardware
	2.  Open it, deferring Close
	3.  use SendRecv for line-oriented exchanges, or SendLine/ReadLine/WriteRaw
		when the protocol mixes text and binary phases

The Conn field is exported so that tests can inject an io.ReadWriteCloser
in place of a real port.
*/
package comm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
	"golang.org/x/time/rate"
)

var (
	// ErrNotConnected is generated when Conn is nil and an exchange is attempted
	ErrNotConnected = errors.New("conn is nil, not connected to device")

	// ErrTimeout is generated when the read deadline expires with no data.
	// Bytes accumulated before the deadline are discarded, never returned.
	ErrTimeout = errors.New("read deadline expired with no data")
)

// flusher is satisfied by *serial.Port and is used to discard stray bytes
// left in the driver buffers by a previous failed exchange
type flusher interface {
	Flush() error
}

// Device is a serial device speaking a line-oriented protocol with a fixed
// settle interval between commands.  It is not safe for concurrent use;
// callers must serialize access externally.
type Device struct {
	// Addr is the filesystem address of the port, e.g. /dev/ttyUSB0
	Addr string

	// Conn is the underlying connection.  It is exported for test injection
	// and must not be touched by consumers otherwise.
	Conn io.ReadWriteCloser

	cfg  *serial.Config
	pace *rate.Limiter
}

// NewDevice returns a Device that will open the port described by cfg and
// space consecutive commands at least settle apart
func NewDevice(cfg *serial.Config, settle time.Duration) *Device {
	return &Device{
		Addr: cfg.Name,
		cfg:  cfg,
		pace: rate.NewLimiter(rate.Every(settle), 1)}
}

// Open the connection, setting the Conn variable.  Idempotent.
func (d *Device) Open() error {
	if d.Conn != nil {
		return nil
	}
	conn, err := serial.OpenPort(d.cfg)
	if err != nil {
		return err
	}
	d.Conn = conn
	// consume the limiter's initial token so the first command waits out
	// the full settle interval like every later one
	d.pace.Reserve()
	return nil
}

// Close the connection, nil-ing the Conn variable.  Idempotent.
func (d *Device) Close() error {
	if d.Conn == nil {
		return nil
	}
	err := d.Conn.Close()
	d.Conn = nil
	return err
}

// Drain discards any bytes sitting in the receive buffer from a previous
// failed exchange.  It never blocks.
func (d *Device) Drain() {
	if f, ok := d.Conn.(flusher); ok {
		f.Flush()
	}
}

// SendLine drains stray input, waits out the settle interval, then writes
// cmd followed by a single linefeed
func (d *Device) SendLine(cmd string) error {
	if d.Conn == nil {
		return ErrNotConnected
	}
	d.Drain()
	d.pace.Wait(context.Background())
	_, err := io.WriteString(d.Conn, cmd+"\n")
	return err
}

// WriteRaw writes b to the device with no framing added.  It is used for
// binary payload phases entered after a text handshake.
func (d *Device) WriteRaw(b []byte) error {
	if d.Conn == nil {
		return ErrNotConnected
	}
	_, err := d.Conn.Write(b)
	return err
}

// ReadLine reads one byte at a time until a single 0x0A is seen, which is
// excluded from the returned payload.  A zero-length read before the
// terminator is an ErrTimeout; no partial result is ever returned.
func (d *Device) ReadLine() ([]byte, error) {
	if d.Conn == nil {
		return nil, ErrNotConnected
	}
	var buf []byte
	one := make([]byte, 1)
	for {
		n, err := d.Conn.Read(one)
		if n == 0 {
			// tarm/serial surfaces an expired VTIME as (0, nil) or
			// (0, io.EOF) depending on platform
			if err == nil || errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w, %d bytes discarded", ErrTimeout, len(buf))
			}
			return nil, err
		}
		if one[0] == '\n' {
			return buf, nil
		}
		buf = append(buf, one[0])
	}
}

// SendRecv sends a command line and reads the single-line reply
func (d *Device) SendRecv(cmd string) ([]byte, error) {
	err := d.SendLine(cmd)
	if err != nil {
		return nil, err
	}
	return d.ReadLine()
}
