package proxy

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"toolgate/pkg/extractor"
)

// responseWriter wraps http.ResponseWriter to rewrite SSE streams that
// carry tagged tool calls in their delta content. Markup-free streams and
// non-SSE responses pass through untouched. Once markup is detected the
// stream is buffered until [DONE], then re-emitted as a sanitized content
// chunk plus a structured tool_calls chunk; if extraction yields nothing
// the buffered chunks are flushed as-is, so display never breaks.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64

	ex      *extractor.Extractor
	metrics *MetricsRecorder
	counter *TiktokenCounter

	enableRewrite bool
	debug         bool

	sseBuffer          bytes.Buffer // everything seen so far, for SSE sniffing
	rawBuffered        bytes.Buffer // writes withheld since detection
	accumulatedContent strings.Builder
	forwardedLen       int // accumulated content chars already sent to the client

	rewriteMode     bool
	rewriteStart    time.Time
	nativeToolCalls bool
	templateChunk   map[string]interface{}
}

// newResponseWriter creates a new response writer wrapper.
func newResponseWriter(w http.ResponseWriter, ex *extractor.Extractor, metrics *MetricsRecorder, counter *TiktokenCounter, enableRewrite, debug bool) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		ex:             ex,
		metrics:        metrics,
		counter:        counter,
		enableRewrite:  enableRewrite,
		debug:          debug,
	}
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write inspects SSE chunks and converts tagged tool calls.
func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.sseBuffer.Write(b)

	if !strings.HasPrefix(rw.sseBuffer.String(), "data: ") {
		// Not SSE, pass through.
		n, err := rw.ResponseWriter.Write(b)
		rw.bytesWritten += int64(n)
		return len(b), err
	}

	accLenBefore := rw.accumulatedContent.Len()
	wasRewriting := rw.rewriteMode
	hasDoneMarker := false

	for _, line := range strings.Split(string(b), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		jsonData := strings.TrimPrefix(line, "data: ")
		if jsonData == "[DONE]" {
			hasDoneMarker = true
			continue
		}

		var chunk map[string]interface{}
		if err := json.Unmarshal([]byte(jsonData), &chunk); err != nil {
			continue
		}
		if rw.templateChunk == nil {
			rw.templateChunk = chunk
		}
		rw.observeChunk(chunk)
	}

	// Native tool calls supersede tag parsing.
	if rw.nativeToolCalls && rw.rewriteMode {
		log.Printf("[STREAM] Native tool calls detected - canceling rewrite mode")
		rw.rewriteMode = false
		rw.flushBuffered()
	}

	if rw.rewriteMode && !wasRewriting {
		// Content from this write on has been withheld from the client.
		rw.forwardedLen = accLenBefore
		rw.rewriteStart = time.Now()
		if rw.debug {
			log.Printf("[STREAM] Tool call markup detected - buffering until [DONE]")
		}
	}

	if rw.rewriteMode {
		rw.rawBuffered.Write(b)
		if hasDoneMarker {
			return rw.finalize(len(b))
		}
		if rw.debug {
			log.Printf("[STREAM] Buffering chunks... (elapsed: %v)", time.Since(rw.rewriteStart))
		}
		return len(b), nil
	}

	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return len(b), err
}

// observeChunk tracks delta content and native tool calls from one chunk.
func (rw *responseWriter) observeChunk(chunk map[string]interface{}) {
	choices, ok := chunk["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return
	}
	choice, ok := choices[0].(map[string]interface{})
	if !ok {
		return
	}
	delta, ok := choice["delta"].(map[string]interface{})
	if !ok {
		return
	}

	if toolCalls, ok := delta["tool_calls"].([]interface{}); ok && len(toolCalls) > 0 {
		rw.nativeToolCalls = true
	}

	if content, ok := delta["content"].(string); ok && content != "" {
		rw.accumulatedContent.WriteString(content)

		if rw.enableRewrite && !rw.rewriteMode && !rw.nativeToolCalls {
			accumulated := rw.accumulatedContent.String()
			if strings.Contains(accumulated, "<tool_call") ||
				strings.Contains(accumulated, "<function=") {
				rw.rewriteMode = true
			}
		}
	}
}

// finalize parses the buffered stream and emits the rewritten chunks.
func (rw *responseWriter) finalize(written int) (int, error) {
	accumulated := rw.accumulatedContent.String()

	parseStart := time.Now()
	calls, diags := rw.ex.ExtractWithDiagnostics(accumulated)
	if rw.metrics != nil {
		rw.metrics.RecordExtraction(len(calls), time.Since(parseStart))
		for _, d := range diags {
			rw.metrics.RecordSkippedCandidate(string(d.Kind), d.Format)
		}
	}

	if len(calls) == 0 {
		// Nothing extractable after all: flush the withheld stream as-is.
		log.Printf("[STREAM] No tool calls extracted, flushing %d buffered bytes", rw.rawBuffered.Len())
		if rw.metrics != nil {
			rw.metrics.RecordStreamRewrite(false)
		}
		rw.rewriteMode = false
		rw.flushBuffered()
		return written, nil
	}

	if rw.debug {
		log.Printf("[STREAM] Parsed %d tool calls, rewriting stream", len(calls))
	}

	// Display text the client has not seen yet, minus the tool call tags.
	// If the stream ended mid-call, the unterminated tail is cut as well.
	pending := accumulated[rw.forwardedLen:]
	if display := extractor.SanitizeContent(pending, extractor.IsPartialToolCall(pending)); display != "" {
		if err := rw.writeChunk(rw.buildContentChunk(display)); err != nil {
			return 0, err
		}
	}
	if err := rw.writeChunk(rw.buildToolCallChunk(calls)); err != nil {
		return 0, err
	}
	if _, err := rw.ResponseWriter.Write([]byte("data: [DONE]\n\n")); err != nil {
		return 0, err
	}

	if rw.metrics != nil {
		rw.metrics.RecordStreamRewrite(true)
		rw.metrics.RecordOutputTokens(rw.counter.CountTokens(accumulated))
	}

	rw.rewriteMode = false
	rw.rawBuffered.Reset()
	return written, nil
}

// flushBuffered forwards everything withheld since detection.
func (rw *responseWriter) flushBuffered() {
	if rw.rawBuffered.Len() == 0 {
		return
	}
	n, _ := rw.ResponseWriter.Write(rw.rawBuffered.Bytes())
	rw.bytesWritten += int64(n)
	rw.rawBuffered.Reset()
}

// writeChunk emits one SSE data chunk.
func (rw *responseWriter) writeChunk(chunk map[string]interface{}) error {
	chunkJSON, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	if _, err := rw.ResponseWriter.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := rw.ResponseWriter.Write(chunkJSON); err != nil {
		return err
	}
	if _, err := rw.ResponseWriter.Write([]byte("\n\n")); err != nil {
		return err
	}
	rw.bytesWritten += int64(len(chunkJSON) + 8)
	return nil
}

// newChunkFromTemplate copies id, model and friends from the first
// upstream chunk.
func (rw *responseWriter) newChunkFromTemplate() map[string]interface{} {
	chunk := make(map[string]interface{})
	if rw.templateChunk != nil {
		for k, v := range rw.templateChunk {
			chunk[k] = v
		}
	} else {
		chunk["object"] = "chat.completion.chunk"
		chunk["created"] = time.Now().Unix()
	}
	return chunk
}

// buildContentChunk builds a delta chunk carrying sanitized display text.
func (rw *responseWriter) buildContentChunk(content string) map[string]interface{} {
	chunk := rw.newChunkFromTemplate()
	chunk["choices"] = []map[string]interface{}{
		{
			"index": 0,
			"delta": map[string]interface{}{"content": content},
		},
	}
	return chunk
}

// buildToolCallChunk builds the final delta chunk with every parsed call.
func (rw *responseWriter) buildToolCallChunk(calls []extractor.ToolCall) map[string]interface{} {
	deltas := make([]map[string]interface{}, 0, len(calls))
	for i, call := range calls {
		deltas = append(deltas, map[string]interface{}{
			"index": i,
			"id":    call.ID,
			"type":  call.Type,
			"function": map[string]interface{}{
				"name":      call.Function.Name,
				"arguments": call.Function.Arguments,
			},
		})
	}

	chunk := rw.newChunkFromTemplate()
	chunk["choices"] = []map[string]interface{}{
		{
			"index":         0,
			"delta":         map[string]interface{}{"tool_calls": deltas},
			"finish_reason": "tool_calls",
		},
	}
	return chunk
}

// Hijack implements http.Hijacker.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Flush implements http.Flusher.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Status returns the captured status code.
func (rw *responseWriter) Status() int {
	return rw.statusCode
}

// Size returns the number of bytes written.
func (rw *responseWriter) Size() int64 {
	return rw.bytesWritten
}
