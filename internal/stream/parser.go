// Package stream maintains the live Server-Sent-Events subscription to
// the Taskeer backend.
package stream

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// Event is one parsed frame of a text/event-stream response.
type Event struct {
	// Name is the event: field, or "message" when absent.
	Name string

	// Data is the data: payload; multi-line data is joined with \n
	// per the event-stream format.
	Data []byte
}

// parseEvents incrementally reads text/event-stream frames from r and
// calls emit for each complete event. It returns when the stream ends:
// nil on EOF, the read error otherwise. Comment lines (leading ':') and
// fields other than event/data are ignored; an event is terminated by a
// blank line and dispatched only if it carries data.
func parseEvents(r io.Reader, emit func(Event)) error {
	scanner := bufio.NewScanner(r)
	// Notification payloads are small, but give the scanner headroom
	// for batched frames.
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)

	var (
		name     string
		data     [][]byte
		haveData bool
	)

	dispatch := func() {
		if haveData {
			ev := Event{Name: name, Data: bytes.Join(data, []byte("\n"))}
			if ev.Name == "" {
				ev.Name = "message"
			}
			emit(ev)
		}
		name = ""
		data = nil
		haveData = false
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			dispatch()
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, []byte(value))
			haveData = true
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	// A final event not terminated by a blank line still counts.
	dispatch()
	return nil
}

// splitField splits an event-stream line into field name and value,
// stripping the single optional space after the colon.
func splitField(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	value = strings.TrimPrefix(value, " ")
	return field, value
}
