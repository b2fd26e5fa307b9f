package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/noml-lang/noml-go/pkg/ast"
	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/parser"
	"github.com/noml-lang/noml-go/pkg/resolver"
	"github.com/noml-lang/noml-go/pkg/schema"
	"github.com/noml-lang/noml-go/pkg/telemetry"
)

func newValidateCommand() *cobra.Command {
	var (
		resolve    bool
		schemaPath string
	)

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a NOML document",
		Long: `Validate a NOML document.

By default only the syntax is checked. With --resolve the document is
fully resolved, which also verifies environment lookups, interpolation
targets, typed literals, and includes. With --schema the resolved values
are additionally checked against a YAML schema file.`,
		Example: `  # Syntax check only
  noml validate config.noml

  # Full resolution
  noml validate --resolve config.noml

  # Resolution plus schema validation
  noml validate --resolve --schema app.schema.yaml config.noml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			log.Debug().
				Str("path", path).
				Bool("resolve", resolve).
				Str("schema", schemaPath).
				Msg("Validating document")

			doc, err := parseInstrumented(cmd.Context(), path)
			if err != nil {
				return reportError(err)
			}

			if resolve || schemaPath != "" {
				r := resolver.New(resolver.Options{
					Logger:  telemetry.FromContext(cmd.Context()).NewComponentLogger("resolver").Zerolog(),
					Metrics: metrics,
					Tracer:  tracer,
				})
				root, err := r.Resolve(cmd.Context(), doc)
				if err != nil {
					return reportError(err)
				}
				if schemaPath != "" {
					s, err := schema.LoadFile(schemaPath)
					if err != nil {
						metrics.RecordError(errs.CategoryOf(err))
						return reportError(err)
					}
					if err := s.Validate(root); err != nil {
						metrics.RecordError(errs.CategoryOf(err))
						return reportError(err)
					}
				}
			}

			fmt.Printf("%s: OK\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&resolve, "resolve", false, "fully resolve the document")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "YAML schema file to validate against")

	return cmd
}

// reportError surfaces the user-facing message for classified errors and
// falls back to the raw error otherwise.
func reportError(err error) error {
	var cerr *errs.Error
	if errors.As(err, &cerr) {
		return errors.New(cerr.UserMessage())
	}
	return err
}

// parseInstrumented parses a file with a span and pipeline metrics around
// the parse stage.
func parseInstrumented(ctx context.Context, path string) (*ast.Document, error) {
	_, span := tracer.StartParseSpan(ctx, path)
	defer span.End()

	start := time.Now()
	doc, err := parser.ParseFile(path)
	metrics.RecordParse(time.Since(start), err)
	if err != nil {
		metrics.RecordError(errs.CategoryOf(err))
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.RecordSuccess(span)
	return doc, nil
}
