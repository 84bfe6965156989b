package stitch

import (
	"encoding/json"
	"fmt"
	"os"
)

// Document is a parsed stitched document.
type Document struct {
	TestBed   *TestBed
	Artifacts []json.RawMessage
}

// ReadDocument loads a stitched document from path.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument decodes a stitched document.
func ParseDocument(data []byte) (*Document, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("parsing document: missing test bed")
	}

	var tb TestBed
	if err := json.Unmarshal(elems[0], &tb); err != nil {
		return nil, fmt.Errorf("parsing test bed: %w", err)
	}
	return &Document{TestBed: &tb, Artifacts: elems[1:]}, nil
}

// Swept returns the test bed keys holding a [start, stop, step] bound, in
// test bed order.
func (d *Document) Swept() []string {
	var keys []string
	for _, k := range d.TestBed.Keys() {
		v, _ := d.TestBed.Get(k)
		raw, ok := v.(json.RawMessage)
		if !ok {
			continue
		}
		var bound []float64
		if json.Unmarshal(raw, &bound) == nil && len(bound) == 3 {
			keys = append(keys, k)
		}
	}
	return keys
}
