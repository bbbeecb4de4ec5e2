package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/clawstrap/pkg/errors"
)

// NewInvokeCmd creates the invoke command.
func NewInvokeCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "invoke NAME [JSON]",
		Short: "Run a command bus command",
		Long: `Run one of the commands the setup UI sends, with its JSON arguments, and
print the JSON result. JSON may be '-' to read the arguments from stdin.

Example:
  clawstrap invoke download_dependency '{"dep_id":"nodejs","use_mirror":false}'`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.RangeArgs(1, setCommandArgs)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return runInvokeList()
			}
			return runInvoke(cmd, args)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List the available commands")

	return cmd
}

func runInvokeList() error {
	_, backend, err := loadBackend(false)
	if err != nil {
		return err
	}
	for _, name := range backend.Registry().Names() {
		_, _ = fmt.Fprintln(stdout, name)
	}
	return nil
}

func runInvoke(cmd *cobra.Command, args []string) error {
	var raw json.RawMessage
	if len(args) > 1 {
		data := []byte(args[1])
		if args[1] == StdinArg {
			var err error
			if data, err = readDocument(StdinArg); err != nil {
				return fmt.Errorf("failed to read arguments: %w", err)
			}
		}
		if !json.Valid(data) {
			return errors.Detail(errors.ErrInvalidArguments, "arguments are not valid JSON")
		}
		raw = data
	}

	_, backend, err := loadBackend(true)
	if err != nil {
		return err
	}
	result, err := backend.Registry().Invoke(cmd.Context(), args[0], raw)
	if err != nil {
		return err
	}
	return printJSON(result)
}
