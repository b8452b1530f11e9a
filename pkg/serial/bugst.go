package serial

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenStream opens the port through go.bug.st/serial and wraps it in a
// StreamPort
func OpenStream(config SerialConfig) (*StreamPort, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	port, err := serial.Open(config.Port, modeFor(config))
	if err != nil {
		return nil, NewSerialError("open", config.Port, err)
	}

	// A finite read timeout lets the reader goroutine notice Close on
	// platforms where closing does not unblock a pending read.
	if config.Timeout > 0 {
		if err := port.SetReadTimeout(config.Timeout); err != nil {
			port.Close()
			return nil, NewSerialError("configure", config.Port, fmt.Errorf("set read timeout: %w", err))
		}
	}

	return NewStreamPort(port, config), nil
}

func modeFor(config SerialConfig) *serial.Mode {
	return &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		StopBits: convertStopBits(config.StopBits),
		Parity:   convertParity(config.Parity),
	}
}

// convertStopBits converts our stop bits format to go.bug.st/serial format
func convertStopBits(stopBits int) serial.StopBits {
	switch stopBits {
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

// convertParity converts our parity format to go.bug.st/serial format
func convertParity(parity string) serial.Parity {
	switch parity {
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	case "mark":
		return serial.MarkParity
	case "space":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}
