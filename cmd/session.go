package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rawserial/pkg/app"
	"rawserial/pkg/config"
	"rawserial/pkg/debuglog"
	"rawserial/pkg/serial"
)

// runSession is swapped in tests
var runSession = startSession

// startSession runs one interactive session. Stdin stays the process's
// stdin, since raw mode needs the terminal's file descriptor.
func startSession(cmd *cobra.Command, name string, cfg serial.SerialConfig) error {
	log, err := debuglog.Open(debugLogPath)
	if err != nil {
		return err
	}
	defer log.Close()

	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "Connecting to %s (%s)...\n", cfg.Port, cfg)
	}

	opts := app.DefaultOptions()
	opts.Name = name
	opts.Serial = cfg
	opts.Verbose = verbose
	opts.Log = log
	opts.Pump.Log = log
	opts.Stdout = cmd.OutOrStdout()
	opts.Stderr = cmd.ErrOrStderr()

	return app.RunInteractive(opts)
}

// openStore returns the profile store selected by --config-dir
func openStore() (*config.Store, error) {
	return config.NewStore(configDir)
}
