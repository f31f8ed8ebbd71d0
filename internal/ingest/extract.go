package ingest

import (
	"encoding/json"
	"io"
)

// listKeys en orden de prioridad.
var listKeys = []string{"lista", "leads", "atendimentos", "items", "resultado", "data"}

// ExtractList devuelve la primera lista plausible del payload, o vacía.
func ExtractList(payload any) []any {
	return extractList(payload, 1)
}

func extractList(payload any, depth int) []any {
	switch v := payload.(type) {
	case []any:
		return v
	case map[string]any:
		for _, k := range listKeys {
			if arr, ok := v[k].([]any); ok {
				return arr
			}
		}
		if depth <= 0 {
			return []any{}
		}
		// envoltorios anidados: {"data": {"lista": [...]}}
		for _, k := range listKeys {
			if inner, ok := v[k].(map[string]any); ok {
				if arr := extractList(inner, depth-1); len(arr) > 0 {
					return arr
				}
			}
		}
	}
	return []any{}
}

// DecodePayload decodifica JSON conservando números como json.Number.
func DecodePayload(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
