package usecase

import (
	"codedoc/internal/domain"
	"codedoc/internal/ports"
	"fmt"
	"strconv"
	"strings"
)

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func stringFieldOr(m map[string]any, key, fallback string) string {
	if s := stringField(m, key); s != "" {
		return s
	}
	return fallback
}

func requireString(p domain.Payload, key string) (string, error) {
	s := strings.TrimSpace(stringField(p, key))
	if s == "" {
		return "", fmt.Errorf("%w: %s is required", domain.ErrInvalidPayload, key)
	}
	return s, nil
}

func boolFieldOr(m map[string]any, key string, fallback bool) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// fileInputs turns an intake file list into parser inputs. Entries are
// either paths or objects carrying full_path/path.
func fileInputs(files any, limit int) []ports.Input {
	var raw []any
	switch v := files.(type) {
	case []any:
		raw = v
	case []string:
		raw = make([]any, len(v))
		for i, s := range v {
			raw[i] = s
		}
	case []map[string]any:
		raw = make([]any, len(v))
		for i, m := range v {
			raw[i] = m
		}
	}

	inputs := make([]ports.Input, 0, len(raw))
	for _, f := range raw {
		var path string
		switch v := f.(type) {
		case string:
			path = v
		case map[string]any:
			path = stringFieldOr(v, "full_path", stringField(v, "path"))
		}
		if path == "" {
			continue
		}
		inputs = append(inputs, ports.Input{"file_path": path})
		if limit > 0 && len(inputs) == limit {
			break
		}
	}
	return inputs
}
