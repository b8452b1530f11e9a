//go:build linux

package serial

// Open opens the serial port described by config
func Open(config SerialConfig) (Port, error) {
	p, err := OpenTTY(config)
	if err != nil {
		return nil, err
	}
	return p, nil
}
