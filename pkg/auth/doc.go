// Package auth provides optional inbound authentication for the gateway.
//
// A Chain asks each Authenticator in turn for a vote: Yes (caller
// identified), No (credentials present but rejected) or Abstain (not this
// authenticator's kind of credential). The first Yes or No decides.
//
// Every identity carries a Grant naming the operations it may call: chat
// (/api/chat, /api/generate), embeddings (/api/embeddings, /api/embed), or
// both. The middleware only establishes who is calling; the engine checks
// the grant with Authorize once it knows which operation was requested.
//
// Sub-packages provide static API keys (apikey), JWT bearer tokens verified
// against a JWKS endpoint (jwt) and the anonymous voter used when inbound
// auth is disabled (noop).
package auth
