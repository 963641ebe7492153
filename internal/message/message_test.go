package message

import "testing"

func TestParseAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		raw    string
		user   string
		domain string
	}{
		{name: "full", raw: "alice@example.com", user: "alice", domain: "example.com"},
		{name: "bare local", raw: "alice", user: "alice", domain: ""},
		{name: "trimmed", raw: "  bob@chat.local ", user: "bob", domain: "chat.local"},
		{name: "at in domain side", raw: "a@b@c", user: "a", domain: "b@c"},
		{name: "empty", raw: "", user: "", domain: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAddress(tt.raw)
			if got.User != tt.user || got.Domain != tt.domain {
				t.Fatalf("ParseAddress(%q) = %q@%q, want %q@%q", tt.raw, got.User, got.Domain, tt.user, tt.domain)
			}
		})
	}
}

func TestAddressString(t *testing.T) {
	t.Parallel()
	if got := (Address{User: "alice", Domain: "example.com"}).String(); got != "alice@example.com" {
		t.Fatalf("String() = %q", got)
	}
	if got := (Address{User: "alice"}).String(); got != "alice" {
		t.Fatalf("bare String() = %q", got)
	}
	if !(Address{}).IsZero() {
		t.Fatal("zero address should be IsZero")
	}
}

func TestParseType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want Type
	}{
		{"chat", TypeChat},
		{"CHAT", TypeChat},
		{" groupchat ", TypeGroupChat},
		{"headline", TypeHeadline},
		{"error", TypeError},
		{"normal", TypeNormal},
		{"", TypeNormal},
		{"bogus", TypeNormal},
	}
	for _, tt := range tests {
		if got := ParseType(tt.raw); got != tt.want {
			t.Fatalf("ParseType(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
