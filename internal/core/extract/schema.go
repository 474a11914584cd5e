package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/construpro/internal/entity"
)

// BuildRecordJSONSchema returns the JSON-Schema of an extracted record as a generic map.
func BuildRecordJSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":          map[string]any{"type": "integer", "minimum": 1},
			"description": map[string]any{"type": "string", "minLength": 1},
			"unit":        map[string]any{"type": "string", "minLength": 1},
			"quantity":    map[string]any{"type": "number", "minimum": 0},
			"rate":        map[string]any{"type": "number", "minimum": 0},
			"amount":      map[string]any{"type": "number", "minimum": 0},
			"category":    map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"id", "description", "unit", "quantity", "rate", "amount", "category"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"company_name":  map[string]any{"type": "string"},
			"project_title": map[string]any{"type": "string"},
			"client_name":   map[string]any{"type": "string"},
			"location":      map[string]any{"type": "string"},
			"total_amount":  map[string]any{"type": "number", "minimum": 0},
			"items":         map[string]any{"type": "array", "items": item},
			"raw_text":      map[string]any{"type": "string"},
		},
		"required": []string{"company_name", "project_title", "client_name", "location", "total_amount", "items", "raw_text"},
	}
}

var recordSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(BuildRecordJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("record.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// ValidateRecord checks rec against the record schema. Item ids must also run
// 1..n in order.
func ValidateRecord(rec entity.ExtractedInvoiceRecord) error {
	schema, err := recordSchema()
	if err != nil {
		return err
	}
	if rec.Items == nil {
		rec.Items = []entity.BoQLineItem{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	for i, it := range rec.Items {
		if it.ID != i+1 {
			return fmt.Errorf("item %d has id %d, want %d", i, it.ID, i+1)
		}
	}
	return nil
}
