package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "toolgate",
	Short: "Tool call extraction gateway for Qwen-style model output",
	Long: `toolgate sits in front of an OpenAI-compatible model server and turns
tagged tool calls embedded in generated text into structured tool_calls.

It understands both the JSON payload form
<tool_call>{"name": ..., "arguments": ...}</tool_call> and the
attribute-style form <tool_call><function=name><parameter=key>value
</parameter></function></tool_call>, rewrites streaming and non-streaming
responses, and strips the tags from the text shown to users.`,
}

func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version information shown by --version.
func SetVersion(version, commit, date string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
