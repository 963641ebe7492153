// Package feed turns host-emitted offline-message records into hook
// dispatches.
//
// The daemon form of this system sits outside the messaging server and
// receives one JSON object per line on stdin (or any reader the host
// provides). Hosts embedding the notifier in-process skip this package and
// dispatch on the hook registry directly.
package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	logx "offlinehook/pkg/logx"

	"offlinehook/internal/hook"
	"offlinehook/internal/message"
)

// maxLine bounds one record. Message bodies are chat-sized; anything beyond
// this is a broken producer, not a message. An oversized line is skipped
// like a malformed one; it never stops the pump.
const maxLine = 1 << 20

// record is the wire form of one offline message. Field names match the
// webhook payload so host-side producers only learn one vocabulary.
type record struct {
	From string `json:"from"`
	To   string `json:"to"`
	ID   string `json:"message_id"`
	Body string `json:"body"`
	Type string `json:"type"`
}

func (r record) message() message.Message {
	return message.Message{
		From: message.ParseAddress(r.From),
		To:   message.ParseAddress(r.To),
		ID:   r.ID,
		Body: r.Body,
		Type: message.ParseType(r.Type),
	}
}

// Pump reads records from r until EOF or ctx cancellation and dispatches
// each as an offline-message hook event. Malformed and oversized lines are
// logged and skipped; they never stop the pump.
func Pump(ctx context.Context, r io.Reader, reg *hook.Registry, log logx.Logger) error {
	if log.IsZero() {
		log = logx.Nop()
	}

	br := bufio.NewReaderSize(r, 64*1024)

	var lineNo int
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, tooLong, err := readLine(br)
		if err != nil && err != io.EOF {
			return err
		}

		switch {
		case tooLong:
			lineNo++
			log.Warn("feed: oversized record skipped", logx.Int("line", lineNo), logx.Int("max_bytes", maxLine))
		case len(line) > 0:
			lineNo++
			var rec record
			if jerr := json.Unmarshal(line, &rec); jerr != nil {
				log.Warn("feed: malformed record skipped", logx.Int("line", lineNo), logx.Err(jerr))
			} else {
				reg.Dispatch(ctx, hook.OfflineMessage, rec.message())
			}
		}

		if err == io.EOF {
			log.Info("feed closed", logx.Int("lines", lineNo))
			return nil
		}
	}
}

// readLine returns the next newline-terminated line with the terminator
// stripped. A line longer than maxLine is reported as tooLong with its
// content (including the remainder up to the newline) discarded, so one
// runaway producer write cannot take the pump down. The final line before
// EOF may be returned together with io.EOF.
func readLine(br *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		frag, ferr := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(frag) > maxLine {
				tooLong = true
				line = nil
			} else {
				line = append(line, frag...)
			}
		}
		switch ferr {
		case nil:
			return chomp(line), tooLong, nil
		case bufio.ErrBufferFull:
			// keep reading (or discarding) until the newline
		default:
			return chomp(line), tooLong, ferr
		}
	}
}

func chomp(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
