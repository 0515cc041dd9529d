package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"specado/internal/api"
)

func newValidateCmd() *cobra.Command {
	var specPath, specType, mode string

	c := &cobra.Command{
		Use:   "validate",
		Short: "Validate a PromptSpec or ProviderSpec document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if specPath == "" || specType == "" {
				return fmt.Errorf("validate requires --spec and --spec-type")
			}

			raw, err := readSpecFile(specPath)
			if err != nil {
				return err
			}

			resp, err := api.Validate(api.ValidateRequest{
				Spec:     raw,
				SpecType: specType,
				Mode:     mode,
			})
			if err != nil {
				printCLIError(err)
				return fmt.Errorf("validation request rejected")
			}

			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("render validate result: %w", err)
			}
			fmt.Println(string(out))

			if !resp.Valid {
				return fmt.Errorf("document failed validation")
			}
			return nil
		},
	}

	c.Flags().StringVar(&specPath, "spec", "", "path to the document to validate (JSON or YAML)")
	c.Flags().StringVar(&specType, "spec-type", "", "\"prompt\" or \"provider\"")
	c.Flags().StringVar(&mode, "mode", "", "\"basic\" (default), \"partial\", or \"strict\"")

	return c
}
