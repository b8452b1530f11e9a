package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rawserial/pkg/serial"
)

// promptSettings asks for the port name and baud rate. An empty answer
// keeps the value from defaults.
func promptSettings(in io.Reader, out io.Writer, defaults serial.SerialConfig) (serial.SerialConfig, error) {
	cfg := defaults
	reader := bufio.NewReader(in)

	name, err := promptLine(reader, out, "Port name: ")
	if err != nil {
		return cfg, err
	}
	if name != "" {
		cfg.Port = name
	}

	baud, err := promptLine(reader, out, "Baud rate: ")
	if err != nil {
		return cfg, err
	}
	if baud != "" {
		n, err := strconv.Atoi(baud)
		if err != nil {
			return cfg, fmt.Errorf("invalid baud rate %q: %w", baud, err)
		}
		cfg.BaudRate = n
	}

	return cfg, nil
}

func promptLine(reader *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)

	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
