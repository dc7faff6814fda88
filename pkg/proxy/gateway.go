package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"toolgate/pkg/extractor"
)

// Gateway proxies an OpenAI-compatible upstream and rewrites tagged tool
// calls in its responses into structured tool_calls, streaming and
// non-streaming alike.
type Gateway struct {
	config    *Config
	metrics   *MetricsRecorder
	ex        *extractor.Extractor
	counter   *TiktokenCounter
	targetURL *url.URL
	proxy     *httputil.ReverseProxy
	engine    *gin.Engine
}

// NewGateway creates a Gateway from the given configuration.
func NewGateway(config *Config) (*Gateway, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	targetURL, err := url.Parse(config.UpstreamURL())
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}

	counter, err := NewTiktokenCounter(config.Model)
	if err != nil {
		log.Printf("[GATEWAY] Tiktoken unavailable, falling back to estimation: %v", err)
		counter = nil
	}

	g := &Gateway{
		config:  config,
		metrics: NewMetricsRecorder(),
		ex: extractor.NewExtractor(
			extractor.WithStrict(config.StrictParse),
			extractor.WithDebug(config.Debug),
		),
		counter:   counter,
		targetURL: targetURL,
	}

	g.proxy = httputil.NewSingleHostReverseProxy(targetURL)
	g.proxy.FlushInterval = -1
	g.proxy.ModifyResponse = g.modifyResponse
	g.proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("[GATEWAY] Proxy error: %v", err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
	}
	director := g.proxy.Director
	g.proxy.Director = func(req *http.Request) {
		director(req)
		// Compressed bodies cannot be rewritten in place.
		req.Header.Del("Accept-Encoding")
	}

	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", g.healthHandler)
	engine.GET("/readyz", g.healthHandler)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.POST("/v1/extract", g.extractHandler)
	engine.POST("/v1/chat/completions", g.chatHandler)
	engine.NoRoute(g.passthroughHandler)
	g.engine = engine

	return g, nil
}

// Router returns the gin engine, mainly for tests.
func (g *Gateway) Router() *gin.Engine {
	return g.engine
}

// Start runs the HTTP server.
func (g *Gateway) Start() error {
	return g.engine.Run(":" + g.config.Port)
}

// healthHandler handles health check requests.
func (g *Gateway) healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// extractRequest is the body of POST /v1/extract.
type extractRequest struct {
	Text    string `json:"text"`
	Partial bool   `json:"partial"`
}

// extractHandler runs the extractor directly over a text buffer.
func (g *Gateway) extractHandler(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"message": "invalid request body: " + err.Error()},
		})
		return
	}

	start := time.Now()
	calls, diags := g.ex.ExtractWithDiagnostics(req.Text)
	g.metrics.RecordExtraction(len(calls), time.Since(start))
	for _, d := range diags {
		g.metrics.RecordSkippedCandidate(string(d.Kind), d.Format)
	}

	if calls == nil {
		calls = []extractor.ToolCall{}
	}
	c.JSON(http.StatusOK, gin.H{
		"tool_calls":  calls,
		"content":     extractor.SanitizeContent(req.Text, req.Partial),
		"partial":     extractor.IsPartialToolCall(req.Text),
		"diagnostics": diags,
	})
}

// chatHandler proxies chat completions with stream rewriting.
func (g *Gateway) chatHandler(c *gin.Context) {
	start := time.Now()
	rw := newResponseWriter(c.Writer, g.ex, g.metrics, g.counter, g.config.EnableRewrite, g.config.Debug)
	g.proxy.ServeHTTP(rw, c.Request)
	g.metrics.RecordRequest(c.Request.Method, c.Request.URL.Path, rw.Status(), time.Since(start))
}

// passthroughHandler proxies everything else untouched.
func (g *Gateway) passthroughHandler(c *gin.Context) {
	start := time.Now()
	g.proxy.ServeHTTP(c.Writer, c.Request)
	g.metrics.RecordRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}

// modifyResponse rewrites non-streaming chat completions whose message
// content carries tagged tool calls.
func (g *Gateway) modifyResponse(resp *http.Response) error {
	if !g.config.EnableRewrite {
		return nil
	}
	if resp.Request == nil || resp.Request.URL.Path != "/v1/chat/completions" {
		return nil
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	resp.Body.Close()

	rewritten := g.rewriteCompletion(body)
	resp.Body = io.NopCloser(bytes.NewReader(rewritten))
	resp.ContentLength = int64(len(rewritten))
	resp.Header.Set("Content-Length", strconv.Itoa(len(rewritten)))
	return nil
}

// rewriteCompletion attaches extracted tool calls to a completion payload.
// On any shape mismatch the body is returned unchanged.
func (g *Gateway) rewriteCompletion(body []byte) []byte {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return body
	}

	choices, ok := payload["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return body
	}
	choice, ok := choices[0].(map[string]interface{})
	if !ok {
		return body
	}
	message, ok := choice["message"].(map[string]interface{})
	if !ok {
		return body
	}
	content, ok := message["content"].(string)
	if !ok || !strings.Contains(content, "<tool_call") {
		return body
	}

	start := time.Now()
	calls, diags := g.ex.ExtractWithDiagnostics(content)
	g.metrics.RecordExtraction(len(calls), time.Since(start))
	for _, d := range diags {
		g.metrics.RecordSkippedCandidate(string(d.Kind), d.Format)
	}
	if len(calls) == 0 {
		return body
	}

	message["tool_calls"] = calls
	message["content"] = extractor.SanitizeContent(content, false)
	choice["finish_reason"] = "tool_calls"
	g.metrics.RecordOutputTokens(g.counter.CountTokens(content))

	out, err := json.Marshal(payload)
	if err != nil {
		return body
	}
	return out
}
