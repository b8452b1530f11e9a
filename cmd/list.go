package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"rawserial/pkg/serial"
)

var (
	listDetails bool
	listFormat  string
)

// listPorts is swapped in tests
var listPorts = serial.GetDetailedPortsList

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

On different platforms:
  - Windows: Lists COM ports
  - Linux: Lists /dev/tty* devices
  - macOS: Lists /dev/cu.* and /dev/tty.* devices`,
	Aliases: []string{"ls", "ports"},
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listDetails, "details", "d", false, "show detailed port information")
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table, csv, json)")
}

func runList(cmd *cobra.Command, args []string) error {
	portInfos, err := listPorts()
	if err != nil {
		return fmt.Errorf("error listing ports: %w", err)
	}

	out := cmd.OutOrStdout()
	switch listFormat {
	case "csv":
		return printPortsCSV(out, portInfos)
	case "json":
		return printPortsJSON(out, portInfos)
	case "table", "":
		printPortsTable(out, portInfos)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected table, csv, or json)", listFormat)
	}
}

func printPortsTable(w io.Writer, portInfos []serial.PortInfo) {
	if len(portInfos) == 0 {
		fmt.Fprintln(w, "No serial ports found.")
		return
	}

	fmt.Fprintf(w, "Found %d serial port(s):\n", len(portInfos))
	for _, portInfo := range portInfos {
		fmt.Fprintf(w, "  %s", portInfo.Name)

		if listDetails && portInfo.IsUSB {
			fmt.Fprintf(w, " [USB]")
			if portInfo.VID != "" || portInfo.PID != "" {
				fmt.Fprintf(w, " VID:%s PID:%s", portInfo.VID, portInfo.PID)
			}
			if portInfo.Product != "" {
				fmt.Fprintf(w, " - %s", portInfo.Product)
			}
			if portInfo.SerialNumber != "" {
				fmt.Fprintf(w, " (SN: %s)", portInfo.SerialNumber)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\nUse 'rawserial connect <port>' or 'rawserial -p <port>' to connect.")
}

func printPortsCSV(w io.Writer, portInfos []serial.PortInfo) error {
	cw := csv.NewWriter(w)
	if listDetails {
		cw.Write([]string{"port", "is_usb", "vid", "pid", "product", "serial_number"})
		for _, p := range portInfos {
			cw.Write([]string{p.Name, strconv.FormatBool(p.IsUSB), p.VID, p.PID, p.Product, p.SerialNumber})
		}
	} else {
		cw.Write([]string{"port"})
		for _, p := range portInfos {
			cw.Write([]string{p.Name})
		}
	}
	cw.Flush()
	return cw.Error()
}

func printPortsJSON(w io.Writer, portInfos []serial.PortInfo) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if listDetails {
		if portInfos == nil {
			portInfos = []serial.PortInfo{}
		}
		return enc.Encode(portInfos)
	}

	names := make([]string, 0, len(portInfos))
	for _, p := range portInfos {
		names = append(names, p.Name)
	}
	return enc.Encode(names)
}
