//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package tool contains internal helpers shared by tool implementations.
package tool

import (
	"reflect"
	"strings"

	"github.com/finsight-ai/finsight/tool"
)

// GenerateJSONSchema generates a basic JSON schema from a reflect.Type.
func GenerateJSONSchema(t reflect.Type) *tool.Schema {
	if t == nil {
		return &tool.Schema{Type: "object"}
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return generateFieldSchema(t)
	}

	schema := &tool.Schema{Type: "object"}
	properties := map[string]*tool.Schema{}
	var required []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		fieldName := field.Name
		isOmitEmpty := false
		if jsonTag != "" {
			if commaIdx := strings.Index(jsonTag, ","); commaIdx != -1 {
				fieldName = jsonTag[:commaIdx]
				isOmitEmpty = strings.Contains(jsonTag[commaIdx:], "omitempty")
			} else {
				fieldName = jsonTag
			}
		}

		fieldSchema := generateFieldSchema(field.Type)
		if desc := field.Tag.Get("description"); desc != "" {
			fieldSchema.Description = desc
		}
		if enum := field.Tag.Get("enum"); enum != "" {
			fieldSchema.Enum = strings.Split(enum, ",")
		}
		properties[fieldName] = fieldSchema

		if field.Type.Kind() != reflect.Ptr && !isOmitEmpty {
			required = append(required, fieldName)
		}
	}

	schema.Properties = properties
	if len(required) > 0 {
		schema.Required = required
	}
	return schema
}

func generateFieldSchema(t reflect.Type) *tool.Schema {
	switch t.Kind() {
	case reflect.String:
		return &tool.Schema{Type: "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &tool.Schema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &tool.Schema{Type: "number"}
	case reflect.Bool:
		return &tool.Schema{Type: "boolean"}
	case reflect.Slice, reflect.Array:
		return &tool.Schema{Type: "array", Items: generateFieldSchema(t.Elem())}
	case reflect.Map:
		return &tool.Schema{
			Type:                 "object",
			AdditionalProperties: generateFieldSchema(t.Elem()),
		}
	case reflect.Ptr:
		return generateFieldSchema(t.Elem())
	case reflect.Struct:
		return GenerateJSONSchema(t)
	default:
		return &tool.Schema{Type: "object"}
	}
}
