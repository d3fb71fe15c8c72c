package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/packager"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/jingkaihe/skillkit/pkg/validator"
)

// generateSchema reflects the JSON schema of T with every type inlined.
func generateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T

	return reflector.Reflect(v)
}

// schemaSubjects maps each machine-readable output to its schema.
var schemaSubjects = map[string]func() *jsonschema.Schema{
	"report":     generateSchema[validator.Report],
	"archive":    generateSchema[packager.Archive],
	"descriptor": generateSchema[skills.Descriptor],
}

func schemaNames() []string {
	names := make([]string, 0, len(schemaSubjects))
	for name := range schemaSubjects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <" + strings.Join(schemaNames(), "|") + ">",
		Short: "Print the JSON schema of a machine-readable output",
		Long: `Print the JSON schema of the documents skillkit emits:

  report      validate --format json
  archive     inspect --format json
  descriptor  the descriptor object inside an archive`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: schemaNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			generate, ok := schemaSubjects[args[0]]
			if !ok {
				return errors.Errorf("unknown schema %q, must be one of: %s", args[0], strings.Join(schemaNames(), ", "))
			}

			out, err := json.MarshalIndent(generate(), "", "  ")
			if err != nil {
				return errors.Wrap(err, "failed to encode schema")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
