package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/fieldlens/fieldlens/fields"
)

// rawField is one entry of the extraction payload: either "value" or "text"
// carries the content, "source" the encoded regions.
type rawField struct {
	Value      string  `json:"value"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Section    string  `json:"section"`
}

type rawPayload struct {
	ExtractedData struct {
		Fields map[string]rawField `json:"fields"`
	} `json:"extracted_data"`
}

// loadFields reads an extraction JSON file. The fields live under
// extracted_data.fields, or at the top level in older payloads.
func loadFields(path, attachment string) ([]fields.Field, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var payload rawPayload
	raw := payload.ExtractedData.Fields
	if err := json.Unmarshal(data, &payload); err == nil && len(payload.ExtractedData.Fields) > 0 {
		raw = payload.ExtractedData.Fields
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]fields.Field, 0, len(names))
	for _, name := range names {
		rf := raw[name]
		value := rf.Value
		if value == "" {
			value = rf.Text
		}
		out = append(out, fields.Field{
			ID:             name,
			Name:           name,
			Value:          value,
			Section:        rf.Section,
			Confidence:     fields.ParseConfidence(rf.Confidence),
			EncodedRegions: rf.Source,
			AttachmentRef:  attachment,
		})
	}
	return out, nil
}
