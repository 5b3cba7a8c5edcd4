package main

import (
	"github.com/spf13/cobra"
)

var (
	// Link connection flags
	connectAddr string
	portName    string
	baudRate    int

	// Monitor flags
	monitorURL string
)

var rootCmd = &cobra.Command{
	Use:   "coachlightctl",
	Short: "Coach light decoder control tool",
	Long: `Coachlightctl talks to a running coachlightd instance over its
protocol link and its monitor endpoints.

Connection modes:
  TCP link:  --connect 127.0.0.1:7020 (default)
  Serial:    --port /dev/ttyUSB0 [--baud 115200]

Commands that read decoder state (status, watch, fn) use the monitor
HTTP endpoint given by --monitor.`,
	Version: "2.0.0",
}

func init() {
	// Link connection flags
	rootCmd.PersistentFlags().StringVar(&connectAddr, "connect", "127.0.0.1:7020", "TCP link address")
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// Monitor flags
	rootCmd.PersistentFlags().StringVar(&monitorURL, "monitor", "http://127.0.0.1:9090", "Monitor base URL")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
