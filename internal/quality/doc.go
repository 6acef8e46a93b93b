// Package quality implements C7: the tiered quality-evaluator fallback
// chain (local cross-encoder, local absolute classifier, remote LLM A/B,
// implicit-signal-only fallback) plus the implicit-signal mixer.
package quality
