// Command ollabridge serves the Ollama HTTP API on top of hosted LLM and
// embedding providers.
//
// Usage:
//
//	# Start the gateway (serve is the default command)
//	ollabridge
//	ollabridge serve --config /etc/ollabridge/config.yaml
//
//	# Show the effective model registry
//	ollabridge models
//
//	# Show version information
//	ollabridge version
//
// Provider credentials come from GEMINI_API_KEY, OPENAI_API_KEY,
// DASHSCOPE_API_KEY and ANTHROPIC_API_KEY. A .env file in the working
// directory is loaded first.
package main

func main() {
	Execute()
}
