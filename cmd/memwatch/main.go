// Command memwatch samples host and per-process memory, alerts on a usage
// threshold and records timed logging sessions to text files.
package main

import (
	"context"
	"fmt"
	"os"

	apperrors "github.com/Dicklesworthstone/memwatch/internal/errors"
)

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil && !apperrors.IsContextError(err) {
		fmt.Fprintln(os.Stderr, "memwatch:", err)
	}
	os.Exit(apperrors.ExitCode(err))
}
