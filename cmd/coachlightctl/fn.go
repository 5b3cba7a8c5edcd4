package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/madsing98/coachlightd/internal/decoder"
	"github.com/madsing98/coachlightd/internal/link"
)

var fnCmd = &cobra.Command{
	Use:   "fn <number> on|off",
	Short: "Switch one function key",
	Long: `Switches a single function F0..F28 on or off. The current group bits
are fetched from the monitor first, so the other functions in the same
group keep their state. Requires a running monitor; use the group
command for raw writes without one.`,
	Args: cobra.ExactArgs(2),
	RunE: runFn,
}

var groupCmd = &cobra.Command{
	Use:   "group <number> <bits>",
	Short: "Write one raw function group byte",
	Args:  cobra.ExactArgs(2),
	RunE:  runGroup,
}

func init() {
	rootCmd.AddCommand(fnCmd)
	rootCmd.AddCommand(groupCmd)
}

func runFn(cmd *cobra.Command, args []string) error {
	fn, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil || fn > uint64(decoder.MaxFunction) {
		return fmt.Errorf("invalid function number %q, want 0..%d", args[0], decoder.MaxFunction)
	}

	var on bool
	switch args[1] {
	case "on":
		on = true
	case "off":
		on = false
	default:
		return fmt.Errorf("invalid switch %q, want on or off", args[1])
	}

	state, err := fetchState()
	if err != nil {
		return err
	}

	var funcs decoder.FunctionStates
	for i, g := range state.Groups {
		if i < decoder.GroupCount {
			funcs[i] = uint8(g)
		}
	}

	group, bits, ok := funcs.GroupWith(uint8(fn), on)
	if !ok {
		return fmt.Errorf("function number %d out of range", fn)
	}

	conn, _, err := OpenLink()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := send(conn, link.NewFunctionGroup(group, bits)); err != nil {
		return err
	}

	fmt.Printf("F%d %s (group %d = 0x%02X)\n", fn, args[1], group, bits)
	return nil
}

func runGroup(cmd *cobra.Command, args []string) error {
	group, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil || group >= decoder.GroupCount {
		return fmt.Errorf("invalid group number %q, want 0..%d", args[0], decoder.GroupCount-1)
	}
	bits, err := strconv.ParseUint(args[1], 0, 8)
	if err != nil {
		return fmt.Errorf("invalid group bits %q", args[1])
	}

	conn, _, err := OpenLink()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := send(conn, link.NewFunctionGroup(uint8(group), uint8(bits))); err != nil {
		return err
	}

	fmt.Printf("Group %d = 0x%02X\n", group, bits)
	return nil
}
