package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rawserial/pkg/config"
	"rawserial/pkg/serial"
)

var (
	connectBaud    int
	connectData    int
	connectStop    int
	connectParity  string
	connectTimeout int
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <port|profile>",
	Short: "Connect to a serial port or a saved profile",
	Long: `Connect to a serial port directly or using a saved profile.

You can specify either:
  - A port name (e.g., COM3, /dev/ttyUSB0) with optional parameters
  - A saved profile name; flags given on the command line override it

Examples:
  # Connect to COM3 with default settings
  rawserial connect COM3

  # Connect to /dev/ttyUSB0 with custom baud rate
  rawserial connect /dev/ttyUSB0 -b 9600

  # Connect using a saved profile
  rawserial connect mydevice`,
	Args:    cobra.ExactArgs(1),
	Aliases: []string{"c", "open"},
	RunE:    runConnect,
}

func init() {
	connectCmd.Flags().IntVarP(&connectBaud, "baud", "b", 115200, "baud rate")
	connectCmd.Flags().IntVarP(&connectData, "data", "d", 8, "data bits (5, 6, 7, or 8)")
	connectCmd.Flags().IntVar(&connectStop, "stop", 1, "stop bits (1 or 2)")
	connectCmd.Flags().StringVar(&connectParity, "parity", "none", "parity (none, odd, even, mark, space)")
	connectCmd.Flags().IntVarP(&connectTimeout, "timeout", "t", 1, "read timeout in seconds")
}

func runConnect(cmd *cobra.Command, args []string) error {
	target := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}

	// A saved profile wins over a port of the same name
	if store.Exists(target) {
		profile, err := store.Load(target)
		if err != nil {
			return fmt.Errorf("failed to load profile '%s': %w", target, err)
		}
		cfg := applyConnectFlags(cmd, profile.Config)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if err := store.UpdateLastUsed(target); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
		return runSession(cmd, target, cfg)
	}

	if !isSerialPort(target) {
		return unknownTarget(cmd, store, target)
	}

	cfg := applyConnectFlags(cmd, serial.DefaultConfig())
	cfg.Port = target
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return runSession(cmd, "", cfg)
}

// applyConnectFlags overrides base with every connect flag the user set.
// With no profile, base is the default config, so every flag applies.
func applyConnectFlags(cmd *cobra.Command, base serial.SerialConfig) serial.SerialConfig {
	flags := cmd.Flags()
	cfg := base

	if flags.Changed("baud") {
		cfg.BaudRate = connectBaud
	}
	if flags.Changed("data") {
		cfg.DataBits = connectData
	}
	if flags.Changed("stop") {
		cfg.StopBits = connectStop
	}
	if flags.Changed("parity") {
		cfg.Parity = connectParity
	}
	if flags.Changed("timeout") {
		cfg.Timeout = time.Duration(connectTimeout) * time.Second
	}
	return cfg
}

// unknownTarget reports a target that is neither a port nor a profile
func unknownTarget(cmd *cobra.Command, store *config.Store, target string) error {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "'%s' is neither a serial port nor a saved profile.\n", target)

	fmt.Fprintf(w, "\nAvailable ports:\n")
	ports, _ := serial.ListPorts()
	if len(ports) == 0 {
		fmt.Fprintf(w, "  No serial ports found.\n")
	}
	for _, p := range ports {
		fmt.Fprintf(w, "  - %s\n", p)
	}

	if profiles, _ := store.List(); len(profiles) > 0 {
		fmt.Fprintf(w, "\nSaved profiles:\n")
		for _, p := range profiles {
			fmt.Fprintf(w, "  - %s (port: %s)\n", p.Name, p.Config.Port)
		}
	}

	return fmt.Errorf("unknown port or profile '%s'", target)
}

func isSerialPort(name string) bool {
	lower := strings.ToLower(name)

	// Windows COM ports
	if strings.HasPrefix(lower, "com") && len(lower) > 3 && strings.Trim(lower[3:], "0123456789") == "" {
		return true
	}

	// Unix-like serial devices
	if strings.HasPrefix(name, "/dev/") {
		return true
	}

	// Check if it exists in the list of available ports
	ports, err := serial.ListPorts()
	if err == nil {
		for _, port := range ports {
			if strings.EqualFold(port, name) {
				return true
			}
		}
	}

	return false
}
