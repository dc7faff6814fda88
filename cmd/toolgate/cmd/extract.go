package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"toolgate/pkg/extractor"
)

var (
	extractPartial bool
	extractStrict  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract tool calls from generated text",
	Long: `Extract tool calls from a file (or stdin when no file is given) and
print them as JSON, together with the sanitized content.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if len(args) == 1 {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		ex := extractor.NewExtractor(extractor.WithStrict(extractStrict))
		text := string(data)
		calls, diags := ex.ExtractWithDiagnostics(text)

		partial := extractPartial && extractor.IsPartialToolCall(text)
		result := map[string]interface{}{
			"tool_calls":  calls,
			"content":     extractor.SanitizeContent(text, partial),
			"partial":     partial,
			"diagnostics": diags,
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().BoolVar(&extractPartial, "partial", false, "Treat the input as a still-streaming prefix")
	extractCmd.Flags().BoolVar(&extractStrict, "strict", false, "Treat never-closing function sections as invalid instead of incomplete")
}
