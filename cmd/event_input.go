package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"faulttriage/internal/domain/fault"
	"faulttriage/internal/errs"
)

const maxEventLine = 1 << 20

type replayItem struct {
	Index int
	Raw   fault.RawEvent
	Err   error
}

// decodeRawEvent decodes one JSON payload. Malformed JSON is reported as a
// validation error so callers answer it like any other bad payload.
func decodeRawEvent(r io.Reader) (fault.RawEvent, error) {
	var raw fault.RawEvent
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return fault.RawEvent{}, &fault.ValidationError{Field: typeErr.Field, Reason: "has the wrong type"}
		}
		return fault.RawEvent{}, &fault.ValidationError{Field: "payload", Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return raw, nil
}

// readReplayItems accepts either a JSON array of events or one event per line.
// Blank lines are skipped; a bad item is kept with its error.
func readReplayItems(r io.Reader) ([]replayItem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(err, "read events")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var chunks [][]byte
	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, errs.Wrap(err, "decode event array")
		}
		for _, item := range items {
			chunks = append(chunks, item)
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			chunks = append(chunks, append([]byte(nil), line...))
		}
		if err := scanner.Err(); err != nil {
			return nil, errs.Wrap(err, "scan events")
		}
	}

	out := make([]replayItem, 0, len(chunks))
	for i, chunk := range chunks {
		raw, err := decodeRawEvent(bytes.NewReader(chunk))
		out = append(out, replayItem{Index: i, Raw: raw, Err: err})
	}
	return out, nil
}
