package webhook

import (
	"net/url"
	"strings"

	"offlinehook/internal/message"
)

// buildPayload renders the x-www-form-urlencoded body for one offline
// message.
//
// Field order is part of the wire contract: from, to, message_id, then body
// when the body is allowed. Only the local part of each address crosses the
// wire. Values are form-encoded; the receiving endpoint sees the original
// text after standard form decoding.
func buildPayload(msg message.Message, confidential bool) string {
	var b strings.Builder
	b.WriteString("from=")
	b.WriteString(url.QueryEscape(msg.From.User))
	b.WriteString("&to=")
	b.WriteString(url.QueryEscape(msg.To.User))
	b.WriteString("&message_id=")
	b.WriteString(url.QueryEscape(msg.ID))
	if !confidential {
		b.WriteString("&body=")
		b.WriteString(url.QueryEscape(msg.Body))
	}
	return b.String()
}

// qualifies reports whether msg should be forwarded at all: only chat
// messages with a non-empty body reach the webhook. Everything else passes
// through the pipeline untouched.
func qualifies(msg message.Message) bool {
	return msg.Type == message.TypeChat && msg.Body != ""
}
