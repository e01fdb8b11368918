// Package gemini is a streaming client for the Gemini generateContent API.
// A Client is bound to one or more model names; each bound model satisfies
// runtime.Model by translating requests to the v1beta wire format and
// decoding the SSE response stream into chunks.
package gemini
