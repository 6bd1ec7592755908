// Package relay forwards upstream streaming responses to the caller as
// Server-Sent Events, guaranteeing well-formed stream termination even
// when the upstream fails mid-stream.
package relay

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/samber/ro"
)

// Event is a Server-Sent Event. Fields follow the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
type Event struct {
	Event string
	ID    string
	Data  []byte
	Retry int
}

// IsDone reports whether this is the OpenAI-style terminator frame.
func (e Event) IsDone() bool {
	return bytes.Equal(bytes.TrimSpace(e.Data), []byte("[DONE]"))
}

// String returns the SSE wire format of the event.
func (e Event) String() string {
	var buf bytes.Buffer
	if e.Event != "" {
		fmt.Fprintf(&buf, "event: %s\n", e.Event)
	}
	if e.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", e.ID)
	}
	if e.Retry > 0 {
		fmt.Fprintf(&buf, "retry: %d\n", e.Retry)
	}
	if len(e.Data) > 0 {
		for _, line := range bytes.Split(e.Data, []byte("\n")) {
			fmt.Fprintf(&buf, "data: %s\n", line)
		}
	}
	buf.WriteString("\n")
	return buf.String()
}

// Bytes returns the SSE wire format as bytes.
func (e Event) Bytes() []byte {
	return []byte(e.String())
}

// ErrNotFlushable is returned when the ResponseWriter cannot flush, which
// makes SSE delivery impossible.
var ErrNotFlushable = errors.New("relay: ResponseWriter does not implement http.Flusher")

// StreamSSE parses SSE events from an upstream body into an Observable.
// The stream completes on EOF and errors on any other read failure. The
// caller closes the body after the observable terminates.
func StreamSSE(body io.Reader) ro.Observable[Event] {
	return ro.NewObservable(func(observer ro.Observer[Event]) ro.Teardown {
		parser := &sseParser{}
		parser.parseStream(bufio.NewReader(body), observer)
		return nil
	})
}

type sseParser struct {
	dataLines [][]byte
	event     Event
}

func (p *sseParser) parseStream(reader *bufio.Reader, observer ro.Observer[Event]) {
	for {
		line, err := reader.ReadBytes('\n')
		p.processLine(line, observer)
		if err != nil {
			p.finalize(observer, err)
			return
		}
	}
}

func (p *sseParser) processLine(line []byte, observer ro.Observer[Event]) {
	if len(line) == 0 {
		return
	}
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 {
		p.emitIfReady(observer)
		return
	}
	p.parseField(line)
}

func (p *sseParser) emitIfReady(observer ro.Observer[Event]) {
	if len(p.dataLines) == 0 {
		return
	}
	p.event.Data = bytes.Join(p.dataLines, []byte("\n"))
	observer.Next(p.event)
	p.event = Event{}
	p.dataLines = nil
}

func (p *sseParser) finalize(observer ro.Observer[Event], err error) {
	p.emitIfReady(observer)
	if errors.Is(err, io.EOF) {
		observer.Complete()
	} else {
		observer.Error(err)
	}
}

func (p *sseParser) parseField(line []byte) {
	if line[0] == ':' {
		return
	}

	field, value := splitFieldValue(line)
	switch string(field) {
	case "event":
		p.event.Event = string(value)
	case "data":
		p.dataLines = append(p.dataLines, value)
	case "id":
		p.event.ID = string(value)
	case "retry":
		if n, err := strconv.Atoi(string(value)); err == nil {
			p.event.Retry = n
		}
	}
}

func splitFieldValue(line []byte) (field, value []byte) {
	colonIdx := bytes.IndexByte(line, ':')
	if colonIdx == -1 {
		return line, nil
	}
	field = line[:colonIdx]
	value = line[colonIdx+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return field, value
}

// WriteEvent writes one event to w and flushes it out immediately.
func WriteEvent(w http.ResponseWriter, event Event) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrNotFlushable
	}
	if _, err := w.Write(event.Bytes()); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
