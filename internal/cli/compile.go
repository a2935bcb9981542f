package cli

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docquery/internal/query"
)

// NewCompileCommand creates the compile command. It needs no config or
// network access.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "compile <relation>",
		Short: "Print the compiled query expression and search URL",
		Example: `  docquery compile article -w 'author=john' -w 'rank>=2' -o updated:desc
  docquery compile entries --relation-id 10000 --or -w 'tags=[go, search]' -w 'featured=true'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.apply(query.New(), args[0])
			if err != nil {
				return err
			}
			return runCompile(q, printer{format: rootOpts.Format, w: cmd.OutOrStdout()})
		},
	}
	flags.register(cmd)
	return cmd
}

func runCompile(q *query.Builder, out printer) error {
	expr, err := q.GetQuery(false)
	if err != nil {
		return err
	}
	url, err := q.GetRequest()
	if err != nil {
		return err
	}
	return out.fields("query", expr, "url", url)
}
