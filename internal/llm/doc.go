// Package llm talks to OpenAI-compatible chat completion backends and routes
// requests across ordered provider chains.
//
// A Client covers one provider: it retries transient failures (timeouts,
// 429/5xx, empty completions) with exponential backoff and honors Retry-After.
// The Router layers capability chains (judge, generate, revise) on top,
// resolving API keys from the environment per call and falling through to the
// next provider once a client exhausts its own retries. Every provider call
// carries a correlation ID so stage logs can be tied back to the attempt.
package llm
