package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/madsing98/coachlightd/internal/link"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore all CVs to factory defaults",
	Long: `Requests a factory reset. The decoder restores one CV per poll tick,
so the restore completes shortly after the request is accepted.`,
	RunE: runReset,
}

var serviceCmd = &cobra.Command{
	Use:   "service enter|exit",
	Short: "Enter or leave service mode",
	Args:  cobra.ExactArgs(1),
	RunE:  runService,
}

var ackCmd = &cobra.Command{
	Use:   "ack",
	Short: "Request an acknowledgment pulse",
	RunE:  runAck,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(ackCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	conn, _, err := OpenLink()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := send(conn, link.NewFactoryReset()); err != nil {
		return err
	}

	fmt.Println("Factory reset requested")
	return nil
}

func runService(cmd *cobra.Command, args []string) error {
	var entering bool
	switch args[0] {
	case "enter":
		entering = true
	case "exit":
		entering = false
	default:
		return fmt.Errorf("invalid argument %q, want enter or exit", args[0])
	}

	conn, _, err := OpenLink()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := send(conn, link.NewServiceMode(entering)); err != nil {
		return err
	}

	fmt.Printf("Service mode %s requested\n", args[0])
	return nil
}

func runAck(cmd *cobra.Command, args []string) error {
	conn, _, err := OpenLink()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := send(conn, link.NewAcknowledge()); err != nil {
		return err
	}

	fmt.Println("Acknowledgment pulse requested")
	return nil
}
