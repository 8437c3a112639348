// Command rtpsd hosts an RTPS participant: it loads a
// rtps.ParticipantConfig from YAML, wires a zap logger and the UDP
// transport, starts the participant, exposes a metrics endpoint, and
// blocks on signals.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:     "rtpsd",
		Short:   "Embedded-profile RTPS participant daemon",
		Version: "0.1.0",
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (participant, log and metrics sections)")

	cmd.AddCommand(runCmd(&configFile))
	cmd.AddCommand(discoverCmd(&configFile))
	return cmd
}
