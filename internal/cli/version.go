package cli

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docquery/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return out.fields("version", version.Version, "commit", version.Commit, "date", version.Date)
			}
			_, err := cmd.OutOrStdout().Write([]byte(version.String() + "\n"))
			return err
		},
	}
}
