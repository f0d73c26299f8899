package auth

import (
	"fmt"
	"strings"

	"github.com/rhuss/ollabridge/pkg/api"
)

// Grant is a set of gateway operations.
type Grant uint8

const (
	GrantChat Grant = 1 << iota
	GrantEmbeddings

	GrantNone Grant = 0
	GrantAll        = GrantChat | GrantEmbeddings
)

// Scope names accepted in key configuration and token claims.
const (
	ScopeChat       = "chat"
	ScopeEmbeddings = "embeddings"
	ScopeAll        = "*"
)

// Allows reports whether every operation in op is granted.
func (g Grant) Allows(op Grant) bool {
	return g&op == op
}

func (g Grant) String() string {
	switch g {
	case GrantNone:
		return "none"
	case GrantChat:
		return ScopeChat
	case GrantEmbeddings:
		return ScopeEmbeddings
	case GrantAll:
		return ScopeChat + "," + ScopeEmbeddings
	}
	return fmt.Sprintf("Grant(%d)", uint8(g))
}

// ParseScopes turns scope names into a Grant. An empty list grants
// everything. Names other than chat, embeddings and * are an error.
func ParseScopes(scopes []string) (Grant, error) {
	if len(scopes) == 0 {
		return GrantAll, nil
	}
	var g Grant
	for _, s := range scopes {
		switch strings.TrimSpace(s) {
		case ScopeChat:
			g |= GrantChat
		case ScopeEmbeddings:
			g |= GrantEmbeddings
		case ScopeAll:
			g |= GrantAll
		default:
			return GrantNone, fmt.Errorf("unknown scope %q (want %q, %q or %q)", s, ScopeChat, ScopeEmbeddings, ScopeAll)
		}
	}
	return g, nil
}

// GrantFor returns the operation an endpoint performs.
func GrantFor(endpoint api.Endpoint) Grant {
	switch endpoint {
	case api.EndpointEmbeddings, api.EndpointEmbed:
		return GrantEmbeddings
	default:
		return GrantChat
	}
}
