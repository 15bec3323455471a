package taskqueue

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// encodeTask renders t as the payload stored by persistent queues.
func encodeTask(t Task) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(t); err != nil {
		return nil, fmt.Errorf("encode task %q: %w", t.ID, err)
	}
	return buf.Bytes(), nil
}

func decodeTask(payload []byte) (*Task, error) {
	t := new(Task)
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return t, nil
}
