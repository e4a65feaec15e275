//go:build !linux

package mmio

// DefaultDevMemPath is the character device exposing physical memory.
const DefaultDevMemPath = "/dev/mem"

// DevMem opens physical memory through /dev/mem. It is only functional on
// Linux; elsewhere Open fails with ErrUnsupportedPlatform.
type DevMem struct {
	Path string
}

// Name returns the device path.
func (d DevMem) Name() string {
	if d.Path == "" {
		return DefaultDevMemPath
	}

	return d.Path
}

// Open always fails on this platform.
func (d DevMem) Open() (Device, error) {
	return nil, ErrUnsupportedPlatform
}
