package commands

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/noml-lang/noml-go/pkg/resolver"
	"github.com/noml-lang/noml-go/pkg/serializer"
	"github.com/noml-lang/noml-go/pkg/telemetry"
	"github.com/noml-lang/noml-go/pkg/value"
)

func newParseCommand() *cobra.Command {
	var allowMissingEnv bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse and resolve a NOML document",
		Long: `Parse a NOML document, resolve it, and print the resolved value tree.

Output is canonical NOML by default, or JSON with --json. Resolution
evaluates env lookups, interpolation, typed literals, and includes, so
the output contains only plain values.`,
		Example: `  # Print resolved values as NOML
  noml parse config.noml

  # Print resolved values as JSON
  noml parse --json config.noml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			log.Debug().Str("path", path).Msg("Parsing document")

			doc, err := parseInstrumented(cmd.Context(), path)
			if err != nil {
				return reportError(err)
			}

			r := resolver.New(resolver.Options{
				AllowMissingEnv: allowMissingEnv,
				Logger:          telemetry.FromContext(cmd.Context()).NewComponentLogger("resolver").Zerolog(),
				Metrics:         metrics,
				Tracer:          tracer,
			})
			root, err := r.Resolve(cmd.Context(), doc)
			if err != nil {
				return reportError(err)
			}

			table, ok := root.(*value.Table)
			if !ok {
				return fmt.Errorf("document did not resolve to a table")
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(toPlain(table))
			}

			fmt.Print(serializer.Encode(table))
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowMissingEnv, "allow-missing-env", false, "treat missing environment variables as null")

	return cmd
}

// toPlain converts a resolved value into JSON-encodable Go values.
func toPlain(v value.Value) any {
	switch v := v.(type) {
	case value.Null:
		return nil
	case value.Bool:
		return bool(v)
	case value.Integer:
		return int64(v)
	case value.Float:
		return float64(v)
	case value.String:
		return string(v)
	case value.Size:
		return int64(v)
	case value.Duration:
		return float64(v)
	case value.Binary:
		return base64.StdEncoding.EncodeToString(v)
	case value.Array:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = toPlain(elem)
		}
		return out
	case *value.Table:
		out := make(map[string]any, v.Len())
		v.Range(func(key string, val value.Value) bool {
			out[key] = toPlain(val)
			return true
		})
		return out
	default:
		return v.String()
	}
}
