package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/madsing98/coachlightd/internal/link"
)

var cvCmd = &cobra.Command{
	Use:   "cv",
	Short: "Read, write and probe configuration variables",
}

var cvReadCmd = &cobra.Command{
	Use:   "read <cv>",
	Short: "Read one CV value",
	Args:  cobra.ExactArgs(1),
	RunE:  runCVRead,
}

var cvWriteCmd = &cobra.Command{
	Use:   "write <cv> <value>",
	Short: "Write one CV value",
	Args:  cobra.ExactArgs(2),
	RunE:  runCVWrite,
}

var cvValidCmd = &cobra.Command{
	Use:   "valid <cv>",
	Short: "Check whether a CV number is accepted",
	Args:  cobra.ExactArgs(1),
	RunE:  runCVValid,
}

var cvValidWrite bool

func init() {
	cvValidCmd.Flags().BoolVar(&cvValidWrite, "write", false, "Check write access instead of read access")

	cvCmd.AddCommand(cvReadCmd, cvWriteCmd, cvValidCmd)
	rootCmd.AddCommand(cvCmd)
}

func parseCV(s string) (uint16, error) {
	nr, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid cv number %q", s)
	}
	return uint16(nr), nil
}

func runCVRead(cmd *cobra.Command, args []string) error {
	nr, err := parseCV(args[0])
	if err != nil {
		return err
	}

	conn, _, err := OpenLink()
	if err != nil {
		return err
	}
	defer conn.Close()

	reply, err := exchange(conn, link.NewCVRead(nr), link.MsgCVReadResult)
	if err != nil {
		return err
	}

	m := reply.PayloadMap()
	if ok, _ := link.GetMapBool(m, link.KeyOK); !ok {
		return fmt.Errorf("cv %d rejected by decoder", nr)
	}
	value, _ := link.GetMapUint(m, link.KeyValue)
	fmt.Printf("CV%d = %d\n", nr, value)
	return nil
}

func runCVWrite(cmd *cobra.Command, args []string) error {
	nr, err := parseCV(args[0])
	if err != nil {
		return err
	}
	value, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		return fmt.Errorf("invalid cv value %q", args[1])
	}

	conn, _, err := OpenLink()
	if err != nil {
		return err
	}
	defer conn.Close()

	reply, err := exchange(conn, link.NewCVWrite(nr, uint8(value)), link.MsgCVWriteResult)
	if err != nil {
		return err
	}

	m := reply.PayloadMap()
	if ok, _ := link.GetMapBool(m, link.KeyOK); !ok {
		return fmt.Errorf("cv %d write rejected by decoder", nr)
	}
	written, _ := link.GetMapUint(m, link.KeyValue)
	fmt.Printf("CV%d = %d\n", nr, written)
	return nil
}

func runCVValid(cmd *cobra.Command, args []string) error {
	nr, err := parseCV(args[0])
	if err != nil {
		return err
	}

	conn, _, err := OpenLink()
	if err != nil {
		return err
	}
	defer conn.Close()

	reply, err := exchange(conn, link.NewCVValid(nr, cvValidWrite), link.MsgCVValidResult)
	if err != nil {
		return err
	}

	access := "read"
	if cvValidWrite {
		access = "write"
	}

	m := reply.PayloadMap()
	if valid, _ := link.GetMapBool(m, link.KeyValid); valid {
		fmt.Printf("CV%d is valid for %s\n", nr, access)
	} else {
		fmt.Printf("CV%d is not valid for %s\n", nr, access)
	}
	return nil
}
