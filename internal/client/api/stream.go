package api

import (
	"bufio"
	"context"
	"docingest/internal/dto"
	"docingest/internal/models"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const maxEventSize = 4 << 20

// Stream reads server-sent document snapshots.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc
}

func newStream(body io.ReadCloser, cancel context.CancelFunc) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxEventSize)

	return &Stream{body: body, scanner: scanner, cancel: cancel}
}

// Next blocks until the next snapshot. A server "error" event is returned as
// a snapshot with Err set. io.EOF means the server closed the stream.
func (s *Stream) Next() (models.Snapshot, error) {
	var event string
	var data strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		switch {
		case line == "":
			if data.Len() == 0 {
				continue
			}
			return decodeEvent(event, data.String())
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := s.scanner.Err(); err != nil {
		return models.Snapshot{}, err
	}

	return models.Snapshot{}, io.EOF
}

func (s *Stream) Close() error {
	s.cancel()
	return s.body.Close()
}

func decodeEvent(event string, data string) (models.Snapshot, error) {
	switch event {
	case "snapshot", "":
		var payload dto.DocumentListResponse
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return models.Snapshot{}, fmt.Errorf("malformed snapshot: %w", err)
		}
		return models.Snapshot{Documents: payload.Documents}, nil
	case "error":
		var payload dto.ErrorResponse
		if err := json.Unmarshal([]byte(data), &payload); err != nil || payload.Error == "" {
			return models.Snapshot{Err: errors.New("subscription failed")}, nil
		}
		return models.Snapshot{Err: errors.New(payload.Error)}, nil
	default:
		return models.Snapshot{}, fmt.Errorf("unknown event %q", event)
	}
}
