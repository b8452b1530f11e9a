package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rawserial/pkg/serial"
)

var (
	// Root command flags
	verbose      bool
	debugLogPath string
	configDir    string

	portName    string
	baudRate    int
	dataBits    int
	stopBits    int
	parity      string
	askSettings bool

	// Root command
	rootCmd = &cobra.Command{
		Use:   "rawserial",
		Short: "A raw interactive serial port terminal",
		Long: `rawserial connects the local keyboard and screen to a serial port.

Keystrokes are sent to the device as they are typed, including arrow keys
and control characters, and everything the device sends is written to the
screen unchanged. Press Ctrl+A to end the session.

Examples:
  # Open the default port at 115200 baud
  rawserial

  # Open a specific port and baud rate
  rawserial -p /dev/ttyACM0 -b 9600

  # Ask for the port name and baud rate
  rawserial -s`,
		Version:           "1.0.0",
		Args:              cobra.NoArgs,
		RunE:              runTerminal,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output and a session summary")
	rootCmd.PersistentFlags().StringVar(&debugLogPath, "debug-log", "", "write a timestamped debug log to this file")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding saved profiles (default: user config dir)")

	rootCmd.Flags().StringVarP(&portName, "portname", "p", serial.DefaultPort(), "serial port name")
	rootCmd.Flags().IntVarP(&baudRate, "baudrate", "b", 115200, "baud rate")
	rootCmd.Flags().BoolVarP(&askSettings, "setting", "s", false, "prompt for the port name and baud rate")
	rootCmd.Flags().IntVar(&dataBits, "data", 8, "data bits (5, 6, 7, or 8)")
	rootCmd.Flags().IntVar(&stopBits, "stop", 1, "stop bits (1 or 2)")
	rootCmd.Flags().StringVar(&parity, "parity", "none", "parity (none, odd, even, mark, space)")

	// Add subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(connectCmd)
}

// runTerminal opens a session from the root flags, or from answers to the
// interactive prompts when --setting is given
func runTerminal(cmd *cobra.Command, args []string) error {
	cfg := serial.DefaultConfig()
	cfg.Port = portName
	cfg.BaudRate = baudRate
	cfg.DataBits = dataBits
	cfg.StopBits = stopBits
	cfg.Parity = parity

	if askSettings {
		var err error
		cfg, err = promptSettings(cmd.InOrStdin(), cmd.OutOrStdout(), cfg)
		if err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return runSession(cmd, "", cfg)
}
