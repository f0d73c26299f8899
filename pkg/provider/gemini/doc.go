// Package gemini implements provider.Provider for the Google Gemini API
// (generateContent, streamGenerateContent with SSE, and embedContent).
// Thought parts returned by thinking models are surfaced as reasoning, and
// system messages are sent as the request's systemInstruction.
package gemini
