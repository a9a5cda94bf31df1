// Package oracle provides the chat completion client behind speaker naming.
//
// The naming stage sends transcript samples and episode metadata to a
// configured model and expects a JSON mapping of diarization labels to real
// names. The client is provider-agnostic: OpenAI, Anthropic, and OpenRouter
// all expose an OpenAI-compatible chat completions endpoint, so one request
// shape covers them and the provider choice only changes the base URL,
// model, and API key resolved by the config layer.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON response.
// Client.HealthCheck: verify the API key and model availability.
// DecodeJSON: decode model output tolerating code fences and leading prose.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default) and
// honors Retry-After. Context cancellation aborts retries immediately.
//
// # Fallback
//
// If the oracle is unavailable or returns an unusable payload, callers fall
// back to sequential placeholder names rather than failing the episode.
package oracle
