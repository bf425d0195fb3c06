//go:build !cgo

package gomidi

import "log"

// Context is a stand-in when built without cgo: there are no MIDI ports.
type Context struct{}

func NewContext(logger *log.Logger) (*Context, error) {
	return nil, ErrNoDriver
}

func (c *Context) Inputs() ([]string, error) {
	return nil, ErrNoDriver
}

func (c *Context) Open(namePrefix string, takeFirst bool, dst Receiver) error {
	return ErrNoDriver
}

func (c *Context) Input() string {
	return ""
}

func (c *Context) Close() {}
