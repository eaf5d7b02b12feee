package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	apperrors "github.com/Dicklesworthstone/memwatch/internal/errors"
	"github.com/Dicklesworthstone/memwatch/internal/inspect"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <pid>",
	Short: "Show the resident memory of one process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := parsePID(args[0])
		if err != nil {
			return err
		}
		fmt.Println(inspect.Process(cmd.Context(), newSource(), pid))
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <pid> <pid>",
	Short: "Compare the resident memory of two processes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := parsePID(args[0])
		if err != nil {
			return err
		}
		b, err := parsePID(args[1])
		if err != nil {
			return err
		}
		fmt.Println(inspect.Compare(cmd.Context(), newSource(), a, b))
		return nil
	},
}

func parsePID(arg string) (int32, error) {
	n, err := strconv.ParseInt(arg, 10, 32)
	if err != nil || n <= 0 {
		return 0, apperrors.ValidationError{Field: "pid", Message: fmt.Sprintf("%q is not a valid PID", arg)}
	}
	return int32(n), nil
}
