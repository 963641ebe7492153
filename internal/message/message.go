// Package message holds the chat message model shared between the host-facing
// ingest side and the webhook notifier.
package message

import "strings"

// Address is a bare chat address of the form local@domain.
//
// Resources/device suffixes are the host's concern; by the time a message
// reaches the offline hook only local@domain matters, and only the local
// part crosses the webhook wire.
type Address struct {
	User   string
	Domain string
}

// ParseAddress splits "alice@example.com" into {User: "alice", Domain:
// "example.com"}. A bare local part parses to an Address with empty Domain.
// The split is on the first '@' so local parts cannot smuggle a domain.
func ParseAddress(s string) Address {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '@'); i >= 0 {
		return Address{User: s[:i], Domain: s[i+1:]}
	}
	return Address{User: s}
}

func (a Address) String() string {
	if a.Domain == "" {
		return a.User
	}
	return a.User + "@" + a.Domain
}

func (a Address) IsZero() bool { return a.User == "" && a.Domain == "" }

// Type classifies a message the way chat protocols do.
type Type string

const (
	TypeChat      Type = "chat"
	TypeGroupChat Type = "groupchat"
	TypeHeadline  Type = "headline"
	TypeNormal    Type = "normal"
	TypeError     Type = "error"
)

// ParseType maps a raw type string to a known Type.
// Unknown or empty values fall back to TypeNormal, matching the convention
// that an untyped message is a normal one.
func ParseType(s string) Type {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeChat:
		return TypeChat
	case TypeGroupChat:
		return TypeGroupChat
	case TypeHeadline:
		return TypeHeadline
	case TypeError:
		return TypeError
	default:
		return TypeNormal
	}
}

// Message is one undeliverable chat message as reported by the host pipeline.
// It is transient: produced once by the host, consumed once by the hook
// chain, never retained.
type Message struct {
	From Address
	To   Address
	ID   string
	Body string
	Type Type
}
