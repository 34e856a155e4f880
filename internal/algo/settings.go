package algo

import (
	"encoding/json"
	"fmt"

	"github.com/MeKo-Tech/masklab/internal/mask"
)

// EncodeStack serializes an algorithm pipeline as a JSON array of
// [name, parameter] pairs, the settings-blob format.
func EncodeStack(entries []mask.AlgoEntry) (string, error) {
	pairs := make([][2]string, len(entries))
	for i, e := range entries {
		pairs[i] = [2]string{string(e.Tag), e.Param}
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("encode algorithm stack: %w", err)
	}
	return string(data), nil
}

// DecodeStack parses a settings blob back into an ordered pipeline.
func DecodeStack(blob string) ([]mask.AlgoEntry, error) {
	if blob == "" {
		return nil, nil
	}
	var pairs [][2]string
	if err := json.Unmarshal([]byte(blob), &pairs); err != nil {
		return nil, fmt.Errorf("decode algorithm stack: %w", err)
	}
	entries := make([]mask.AlgoEntry, len(pairs))
	for i, p := range pairs {
		entries[i] = mask.AlgoEntry{Tag: mask.Tag(p[0]), Param: p[1]}
	}
	return entries, nil
}
