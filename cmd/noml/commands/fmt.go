package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/noml-lang/noml-go/pkg/serializer"
)

func newFmtCommand() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt <file>",
		Short: "Format a NOML document",
		Long: `Format a NOML document into its canonical layout.

Formatting rewrites whitespace and indentation while preserving
comments, key order, value spellings, and unresolved expressions
(env lookups, interpolation, includes, typed literals).`,
		Example: `  # Print the formatted document to stdout
  noml fmt config.noml

  # Rewrite the file in place
  noml fmt -w config.noml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			doc, err := parseInstrumented(cmd.Context(), path)
			if err != nil {
				return reportError(err)
			}

			out, err := serializer.Serialize(doc)
			if err != nil {
				return reportError(err)
			}

			if write {
				if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
					return err
				}
				log.Info().Str("path", path).Msg("Formatted document")
				return nil
			}

			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the result back to the file")

	return cmd
}
