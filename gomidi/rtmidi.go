//go:build cgo

package gomidi

import (
	"fmt"
	"log"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Context owns the rtmidi driver and at most one open input port.
type Context struct {
	driver *rtmididrv.Driver
	in     drivers.In
	stop   func()
	logger *log.Logger
}

// NewContext opens the driver. Errors are logged to logger, if not nil.
func NewContext(logger *log.Logger) (*Context, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDriver, err)
	}
	return &Context{driver: driver, logger: logger}, nil
}

// Inputs lists the names of the input ports.
func (c *Context) Inputs() ([]string, error) {
	ins, err := c.driver.Ins()
	if err != nil {
		return nil, fmt.Errorf("could not list MIDI inputs: %w", err)
	}
	ret := make([]string, len(ins))
	for i, in := range ins {
		ret[i] = in.String()
	}
	return ret, nil
}

// Open starts forwarding the port whose name starts with namePrefix, or the
// first port if takeFirst, to dst. A port opened before is closed first.
func (c *Context) Open(namePrefix string, takeFirst bool, dst Receiver) error {
	ins, err := c.driver.Ins()
	if err != nil {
		return fmt.Errorf("could not list MIDI inputs: %w", err)
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	i, ok := pick(names, namePrefix, takeFirst)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoInput, namePrefix)
	}
	c.closeInput()
	in := ins[i]
	if err := in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		if err := dst.Send(msg, -1); err != nil && c.logger != nil {
			c.logger.Printf("gomidi: %v", err)
		}
	}, midi.UseSysEx(), midi.UseActiveSense())
	if err != nil {
		in.Close()
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	c.in, c.stop = in, stop
	return nil
}

// Input returns the name of the open port, or "" if none.
func (c *Context) Input() string {
	if c.in == nil || !c.in.IsOpen() {
		return ""
	}
	return c.in.String()
}

func (c *Context) closeInput() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.in != nil && c.in.IsOpen() {
		c.in.Close()
	}
	c.in = nil
}

func (c *Context) Close() {
	c.closeInput()
	c.driver.Close()
}
