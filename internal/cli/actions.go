package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/logbase/internal/action"
)

// actionView is one row of the action table.
type actionView struct {
	Code int8   `json:"code"`
	Name string `json:"name"`
}

// NewActionsCommand creates the actions command.
func NewActionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "actions",
		Short:         "List the audited action names and their codes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := action.Names()
			views := make([]actionView, 0, len(names))
			for _, name := range names {
				code, _ := action.Code(name)
				views = append(views, actionView{Code: code, Name: name})
			}

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return f.Success(views, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "CODE\tNAME")
				for _, v := range views {
					fmt.Fprintf(tw, "%d\t%s\n", v.Code, v.Name)
				}
				tw.Flush()
			})
		},
	}
}
