package eventlog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"sync"
)

// CSVWriter appends items as CSV rows. Items are flattened through their
// JSON form: nested objects become dotted column names. The header is
// taken from the first item and written once. Safe for concurrent use.
type CSVWriter[T any] struct {
	mu     sync.Mutex
	writer *csv.Writer
	header []string
}

// NewCSVWriter writes to dest.
func NewCSVWriter[T any](dest io.Writer) *CSVWriter[T] {
	return &CSVWriter[T]{writer: csv.NewWriter(dest)}
}

// Append writes one row and flushes it.
func (cw *CSVWriter[T]) Append(_ context.Context, item T) error {
	jsonData, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshalling JSON: %w", err)
	}
	data := map[string]any{}
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return fmt.Errorf("unmarshalling JSON: %w", err)
	}
	flat := map[string]string{}
	flatten("", data, flat)

	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.header == nil {
		cw.header = slices.Sorted(maps.Keys(flat))
		if err := cw.writer.Write(cw.header); err != nil {
			return err
		}
	}

	values := make([]string, len(cw.header))
	for i, k := range cw.header {
		values[i] = flat[k]
	}
	if err := cw.writer.Write(values); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

func flatten(prefix string, data map[string]any, out map[string]string) {
	for k, v := range data {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case map[string]any:
			flatten(key, v, out)
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case nil:
			out[key] = ""
		case string:
			out[key] = v
		default:
			out[key] = fmt.Sprint(v)
		}
	}
}
