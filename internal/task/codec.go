package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrMalformed is returned when persisted data is not a JSON array.
var ErrMalformed = errors.New("malformed task data")

const recordSchemaURL = "firetodo://task-record.json"

// recordSchema describes one persisted task: a title string and an optional
// completion flag. Records that fail it are dropped on decode.
const recordSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["title"],
	"properties": {
		"title": {"type": "string"},
		"completed": {"type": "boolean"}
	}
}`

var schema = jsonschema.MustCompileString(recordSchemaURL, recordSchema)

// record is the persisted form of a Task.
type record struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// EncodeList encodes tasks as a JSON array of {title, completed} records.
// A nil slice encodes as an empty array.
func EncodeList(tasks []Task) ([]byte, error) {
	records := make([]record, len(tasks))
	for i, t := range tasks {
		records[i] = record{Title: t.Title, Completed: t.Completed}
	}
	return json.Marshal(records)
}

// EncodeRecord encodes a single task record.
func EncodeRecord(t Task) (json.RawMessage, error) {
	return json.Marshal(record{Title: t.Title, Completed: t.Completed})
}

// DecodeList parses a JSON array of task records.
// Empty input yields an empty collection. Input that is not a JSON array
// yields ErrMalformed. Individual records that do not validate are skipped.
func DecodeList(data []byte) ([]Task, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Task{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	tasks := make([]Task, 0, len(raw))
	for i, r := range raw {
		t, ok := DecodeRecord(r)
		if !ok {
			slog.Debug("skipping invalid task record", "index", i)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// DecodeRecord parses one task record. It reports false when the record is
// not valid JSON or does not match the record schema.
func DecodeRecord(data json.RawMessage) (Task, bool) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return Task{}, false
	}
	if err := schema.Validate(v); err != nil {
		return Task{}, false
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return Task{}, false
	}
	return Task{Title: r.Title, Completed: r.Completed}, true
}
