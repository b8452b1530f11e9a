package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"rawserial/pkg/serial"
)

var (
	// Config command flags
	configPort        string
	configBaudRate    int
	configDataBits    int
	configStopBits    int
	configParity      string
	configTimeout     int
	configDescription string
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage saved port profiles",
	Long: `Manage saved serial port profiles.

A profile stores a port name and its line settings under a short name,
so a device can be opened with 'rawserial connect <name>'.`,
	Aliases: []string{"profile"},
}

// saveCmd saves a profile
var saveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save a serial port profile",
	Long: `Save a serial port profile under the given name. An existing profile
of the same name is replaced but keeps its creation time.

Example:
  rawserial config save router -p /dev/ttyUSB0 -b 115200`,
	Args: cobra.ExactArgs(1),
	RunE: runSaveConfig,
}

// loadCmd loads a profile and connects
var loadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Connect using a saved profile",
	Long: `Load a saved profile and immediately open a session on its port.

Example:
  rawserial config load router`,
	Args: cobra.ExactArgs(1),
	RunE: runLoadConfig,
}

// listConfigCmd lists all profiles
var listConfigCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all saved profiles",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE:    runListConfigs,
}

// deleteCmd deletes a profile
var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved profile",
	Long: `Delete a saved serial port profile.

Example:
  rawserial config delete router`,
	Aliases: []string{"rm", "remove"},
	Args:    cobra.ExactArgs(1),
	RunE:    runDeleteConfig,
}

// showCmd shows details of a profile
var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show details of a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowConfig,
}

func init() {
	configCmd.AddCommand(saveCmd)
	configCmd.AddCommand(loadCmd)
	configCmd.AddCommand(listConfigCmd)
	configCmd.AddCommand(deleteCmd)
	configCmd.AddCommand(showCmd)

	saveCmd.Flags().StringVarP(&configPort, "port", "p", "", "serial port")
	saveCmd.Flags().IntVarP(&configBaudRate, "baud", "b", 115200, "baud rate")
	saveCmd.Flags().IntVarP(&configDataBits, "data", "d", 8, "data bits")
	saveCmd.Flags().IntVar(&configStopBits, "stop", 1, "stop bits")
	saveCmd.Flags().StringVar(&configParity, "parity", "none", "parity")
	saveCmd.Flags().IntVarP(&configTimeout, "timeout", "t", 1, "read timeout in seconds")
	saveCmd.Flags().StringVar(&configDescription, "description", "", "free-form note shown by 'config show'")
	saveCmd.MarkFlagRequired("port")
}

func runSaveConfig(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg := serial.SerialConfig{
		Port:     configPort,
		BaudRate: configBaudRate,
		DataBits: configDataBits,
		StopBits: configStopBits,
		Parity:   configParity,
		Timeout:  time.Duration(configTimeout) * time.Second,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.Save(name, cfg, configDescription); err != nil {
		return fmt.Errorf("error saving profile '%s': %w", name, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Profile '%s' saved successfully.\n", name)
	fmt.Fprintf(out, "  Port:      %s\n", cfg.Port)
	fmt.Fprintf(out, "  Settings:  %s\n", cfg)
	fmt.Fprintf(out, "  Timeout:   %v\n", cfg.Timeout)
	return nil
}

func runLoadConfig(cmd *cobra.Command, args []string) error {
	name := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	profile, err := store.Load(name)
	if err != nil {
		return fmt.Errorf("error loading profile '%s': %w", name, err)
	}
	if err := store.UpdateLastUsed(name); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}

	return runSession(cmd, name, profile.Config)
}

func runListConfigs(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	profiles, err := store.List()
	if err != nil {
		return fmt.Errorf("error listing profiles: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(profiles) == 0 {
		fmt.Fprintln(out, "No saved profiles found.")
		fmt.Fprintln(out, "\nUse 'rawserial config save <name> -p <port>' to save one.")
		return nil
	}

	fmt.Fprintf(out, "Found %d saved profile(s):\n\n", len(profiles))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPORT\tSETTINGS\tLAST USED\tCREATED")
	fmt.Fprintln(w, "----\t----\t--------\t---------\t-------")
	for _, p := range profiles {
		lastUsed := "Never"
		if !p.LastUsedAt.IsZero() {
			lastUsed = p.LastUsedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.Name,
			p.Config.Port,
			p.Config,
			lastUsed,
			p.CreatedAt.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nUse 'rawserial connect <name>' to open a session with a profile.")
	return nil
}

func runDeleteConfig(cmd *cobra.Command, args []string) error {
	name := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.Delete(name); err != nil {
		return fmt.Errorf("error deleting profile '%s': %w", name, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' deleted successfully.\n", name)
	return nil
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	name := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	p, err := store.Load(name)
	if err != nil {
		return fmt.Errorf("error loading profile '%s': %w", name, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Profile: %s\n", p.Name)
	fmt.Fprintln(out, strings.Repeat("=", len(p.Name)+9))
	if p.Description != "" {
		fmt.Fprintf(out, "%s\n\n", p.Description)
	}
	fmt.Fprintf(out, "Port:        %s\n", p.Config.Port)
	fmt.Fprintf(out, "Baud Rate:   %d\n", p.Config.BaudRate)
	fmt.Fprintf(out, "Data Bits:   %d\n", p.Config.DataBits)
	fmt.Fprintf(out, "Stop Bits:   %d\n", p.Config.StopBits)
	fmt.Fprintf(out, "Parity:      %s\n", p.Config.Parity)
	fmt.Fprintf(out, "Timeout:     %v\n", p.Config.Timeout)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Created:     %s\n", p.CreatedAt.Format(time.RFC3339))
	if p.LastUsedAt.IsZero() {
		fmt.Fprintln(out, "Last Used:   Never")
	} else {
		fmt.Fprintf(out, "Last Used:   %s\n", p.LastUsedAt.Format(time.RFC3339))
	}
	return nil
}
