package config

import (
	"fmt"
	"os"
	"strconv"

	json "github.com/goccy/go-json"
)

// LoadLabelMap reads a JSON object of class index to label name, e.g.
// {"0": "dissimilar", "1": "similar"}.
func LoadLabelMap(path string) (map[int]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label map: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse label map %s: %w", path, err)
	}
	out := make(map[int]string, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("label map %s: key %q is not a class index", path, k)
		}
		out[idx] = v
	}
	return out, nil
}
