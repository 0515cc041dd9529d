package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"specado/internal/api"
	"specado/internal/apperr"
	"specado/internal/archive"
	"specado/internal/lossiness"
)

func newTranslateCmd() *cobra.Command {
	var promptPath, providerPath, modelID, strictMode, exportAudit string

	c := &cobra.Command{
		Use:   "translate",
		Short: "Translate a PromptSpec against a ProviderSpec model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if promptPath == "" || providerPath == "" || modelID == "" {
				return fmt.Errorf("translate requires --prompt, --provider-spec, and --model")
			}

			promptRaw, err := readSpecFile(promptPath)
			if err != nil {
				return err
			}
			providerRaw, err := readSpecFile(providerPath)
			if err != nil {
				return err
			}

			req := api.TranslateRequest{
				PromptSpec:   promptRaw,
				ProviderSpec: providerRaw,
				ModelID:      modelID,
				StrictMode:   strictMode,
			}

			resp, errResp := api.Translate(req)
			if errResp != nil {
				printCLIErrorResponse(*errResp)
				return fmt.Errorf("translation failed")
			}

			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("render translate result: %w", err)
			}
			fmt.Println(string(out))

			if exportAudit != "" {
				report := renderAuditReport(responseLossinessItems(resp.Lossiness))
				if err := archive.ExportAuditReport(exportAudit, report); err != nil {
					return fmt.Errorf("export audit report: %w", err)
				}
				fmt.Fprintf(os.Stderr, "audit report written to %s\n", exportAudit)
			}

			return nil
		},
	}

	c.Flags().StringVar(&promptPath, "prompt", "", "path to a PromptSpec document (JSON or YAML)")
	c.Flags().StringVar(&providerPath, "provider-spec", "", "path to a ProviderSpec document (JSON or YAML)")
	c.Flags().StringVar(&modelID, "model", "", "model id or alias to resolve within the ProviderSpec")
	c.Flags().StringVar(&strictMode, "strict-mode", "", "override the PromptSpec's strict_mode (Strict, Warn, Coerce)")
	c.Flags().StringVar(&exportAudit, "export-audit", "", "write a brotli-compressed audit report to this path")

	return c
}

func printCLIErrorResponse(errResp api.ErrorResponse) {
	appErr := &apperr.Error{Kind: errResp.Error.Kind, Message: errResp.Error.Message, Path: errResp.Error.Path}
	printCLIError(appErr)
}

func responseLossinessItems(w api.LossinessWire) []lossiness.Item {
	items := make([]lossiness.Item, len(w.Items))
	for i, it := range w.Items {
		items[i] = lossiness.Item{
			Code:          it.Code,
			Path:          it.Path,
			Message:       it.Message,
			Before:        it.Before,
			After:         it.After,
			Severity:      it.Severity,
			OperationType: it.OperationType,
			Metadata:      it.Metadata,
			TimingMicros:  it.TimingMicros,
		}
	}
	return items
}

// renderAuditReport renders items already decoded from the wire, since the
// CLI only has the §6.1 response in hand rather than the Tracker that
// produced it. Each line uses (*lossiness.Tracker).AuditReport's
// "[severity] code at path: message (op=...)" prefix; before/after values
// are not printed, and the trailing line gives only the total, without
// max_severity.
func renderAuditReport(items []lossiness.Item) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "[%s] %s at %s: %s", item.Severity, item.Code, item.Path, item.Message)
		if item.OperationType != "" {
			fmt.Fprintf(&b, " (op=%s)", item.OperationType)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "total=%d\n", len(items))
	return b.String()
}
