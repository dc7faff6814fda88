package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"toolgate/pkg/proxy"
)

var (
	upstreamHost string
	upstreamPort string
	port         string
	model        string
	strictParse  bool
	noRewrite    bool
	debug        bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extraction gateway",
	Long: `Start the HTTP gateway in front of the model server.

The gateway will:
- Proxy all requests to the upstream OpenAI-compatible server
- Buffer streamed responses once tool call markup appears
- Rewrite tagged tool calls into structured tool_calls
- Strip tool call tags from displayed content`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config := &proxy.Config{
			UpstreamHost:  upstreamHost,
			UpstreamPort:  upstreamPort,
			Port:          port,
			Model:         model,
			StrictParse:   strictParse,
			EnableRewrite: !noRewrite,
			Debug:         debug,
		}

		gateway, err := proxy.NewGateway(config)
		if err != nil {
			return err
		}

		log.Printf("🚀 Starting toolgate on :%s", port)
		log.Printf("   Upstream: http://%s:%s", upstreamHost, upstreamPort)
		log.Printf("   Rewrite enabled: %v", !noRewrite)

		return gateway.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&upstreamHost, "upstream-host", getEnvOrDefault("UPSTREAM_HOST", "localhost"), "Upstream server host")
	serveCmd.Flags().StringVar(&upstreamPort, "upstream-port", getEnvOrDefault("UPSTREAM_PORT", "8000"), "Upstream server port")
	serveCmd.Flags().StringVar(&port, "port", getEnvOrDefault("PORT", "8080"), "HTTP server port")
	serveCmd.Flags().StringVar(&model, "model", getEnvOrDefault("MODEL_NAME", "qwen3"), "Model name used for token accounting")
	serveCmd.Flags().BoolVar(&strictParse, "strict", false, "Treat never-closing function sections as invalid instead of incomplete")
	serveCmd.Flags().BoolVar(&noRewrite, "no-rewrite", false, "Disable response rewriting (pure passthrough)")
	serveCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
}
