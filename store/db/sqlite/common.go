package sqlite

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

// placeholder returns a placeholder for SQLite (uses ?)
func placeholder(_ int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

func listLimit(limit int) int {
	if limit <= 0 {
		return store.DefaultListLimit
	}
	return limit
}

// decodeStrings reads a JSON text array column.
func decodeStrings(raw string) ([]string, error) {
	list := []string{}
	if raw == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, errors.Wrap(err, "failed to decode string array")
	}
	return list, nil
}

// decodeVector reads a JSON text embedding column. NULL yields nil.
func decodeVector(raw *string) ([]float32, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var vector []float32
	if err := json.Unmarshal([]byte(*raw), &vector); err != nil {
		return nil, errors.Wrap(err, "failed to decode embedding")
	}
	return vector, nil
}
