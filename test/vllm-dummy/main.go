// Dummy OpenAI-compatible upstream for exercising the gateway by hand.
// Its responses embed tagged tool calls in the generated text, the way
// a Qwen-style model emits them, so the gateway's rewriting can be
// observed without a real model server.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// ModelsResponse represents the /v1/models API response
type ModelsResponse struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// Model represents a single model in the API
type Model struct {
	ID      string      `json:"id"`
	Object  string      `json:"object"`
	Created int64       `json:"created"`
	OwnedBy string      `json:"owned_by"`
	Root    string      `json:"root"`
	Parent  interface{} `json:"parent"`
}

var (
	// isReady tracks if the server has finished "loading"
	isReady atomic.Bool
)

// Canned assistant outputs. The prompt selects one by keyword; the
// default mixes prose with a JSON payload tool call.
const (
	jsonFormReply = `Let me look that up. <tool_call>
{"name": "get_weather", "arguments": {"city": "Paris", "unit": "celsius"}}
</tool_call>`

	attrFormReply = `<tool_call><function=execute_sql><parameter=query>SELECT * FROM users</parameter><parameter=limit>10</parameter></function></tool_call>`

	plainReply = "This is a fake response from the mock model server."
)

func main() {
	modelName := os.Getenv("MODEL_NAME")
	if modelName == "" {
		modelName = "qwen3"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	// STARTUP_DELAY simulates model loading time (in seconds)
	startupDelay := 0
	if delayStr := os.Getenv("STARTUP_DELAY"); delayStr != "" {
		if delay, err := strconv.Atoi(delayStr); err == nil && delay > 0 {
			startupDelay = delay
		}
	}

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting dummy model server on %s", addr)
	log.Printf("Model: %s", modelName)

	if startupDelay > 0 {
		log.Printf("Simulating model loading with %d second startup delay", startupDelay)
		isReady.Store(false)

		go func() {
			time.Sleep(time.Duration(startupDelay) * time.Second)
			isReady.Store(true)
			log.Printf("Model loaded, server is now ready to accept requests")
		}()
	} else {
		isReady.Store(true)
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/v1/models", modelsHandler(modelName))
	http.HandleFunc("/v1/chat/completions", chatCompletionsHandler(modelName))

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	if !isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := fmt.Fprintln(w, "Loading"); err != nil {
			log.Printf("Failed to write response: %v", err)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintln(w, "OK"); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func modelsHandler(modelName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		response := ModelsResponse{
			Object: "list",
			Data: []Model{
				{
					ID:      modelName,
					Object:  "model",
					Created: 1700000000,
					OwnedBy: "vllm",
					Root:    modelName,
					Parent:  nil,
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Printf("Failed to encode models response: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}

type chatRequest struct {
	Stream   bool `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// pickReply chooses the canned output from keywords in the last user
// message: "sql" selects the attribute form, "weather" the JSON form,
// anything else plain prose.
func pickReply(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != "user" {
			continue
		}
		prompt := strings.ToLower(req.Messages[i].Content)
		switch {
		case strings.Contains(prompt, "sql"):
			return attrFormReply
		case strings.Contains(prompt, "weather"):
			return jsonFormReply
		}
		break
	}
	return plainReply
}

func chatCompletionsHandler(modelName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		reply := pickReply(&req)
		if req.Stream {
			streamReply(w, modelName, reply)
			return
		}

		response := map[string]interface{}{
			"id":      "chatcmpl-dummy",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   modelName,
			"choices": []map[string]interface{}{
				{
					"index": 0,
					"message": map[string]string{
						"role":    "assistant",
						"content": reply,
					},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{
				"prompt_tokens":     10,
				"completion_tokens": 15,
				"total_tokens":      25,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Printf("Failed to encode chat completions response: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}

// streamReply splits the reply into small deltas so the gateway sees a
// tool call arrive piecewise, the way a real model streams one.
func streamReply(w http.ResponseWriter, modelName, reply string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, _ := w.(http.Flusher)

	const pieceSize = 8
	for start := 0; start < len(reply); start += pieceSize {
		end := start + pieceSize
		if end > len(reply) {
			end = len(reply)
		}

		chunk := map[string]interface{}{
			"id":      "chatcmpl-dummy",
			"object":  "chat.completion.chunk",
			"created": 1700000000,
			"model":   modelName,
			"choices": []map[string]interface{}{
				{
					"index": 0,
					"delta": map[string]string{"content": reply[start:end]},
				},
			},
		}
		data, err := json.Marshal(chunk)
		if err != nil {
			log.Printf("Failed to encode stream chunk: %v", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}
