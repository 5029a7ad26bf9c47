// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package schema lets an Instruction's output schema be declared as a Go
// struct instead of a hand-written map[string]parser.Field, by reflecting
// the struct's JSON shape via invopop/jsonschema into the parser package's
// Kind vocabulary.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/axle-run/axle/parser"
)

// FromStruct reflects v (typically a zero-value struct or a pointer to one)
// into a parser.Schema. Every field not listed in v's reflected "required"
// set is wrapped as parser.KindOptional, matching the parser package.s optional-field
// semantics.
func FromStruct(v any) (parser.Schema, error) {
	root := resolve(jsonschema.Reflect(v))
	if root == nil || root.Properties == nil {
		return nil, fmt.Errorf("schema: %T has no reflectable fields", v)
	}

	required := make(map[string]bool, len(root.Required))
	for _, name := range root.Required {
		required[name] = true
	}

	out := make(parser.Schema, root.Properties.Len())
	for pair := root.Properties.Oldest(); pair != nil; pair = pair.Next() {
		field, err := fieldKind(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("schema: field %q: %w", pair.Key, err)
		}
		if !required[pair.Key] {
			field = parser.Field{Kind: parser.KindOptional, Inner: field.Kind}
		}
		out[pair.Key] = field
	}
	return out, nil
}

// resolve follows a top-level $ref into Definitions, for reflectors that
// emit the root type as a definition rather than inlining it.
func resolve(s *jsonschema.Schema) *jsonschema.Schema {
	if s == nil || s.Ref == "" {
		return s
	}
	name := strings.TrimPrefix(s.Ref, "#/$defs/")
	if def, ok := s.Definitions[name]; ok {
		return def
	}
	return s
}

func fieldKind(s *jsonschema.Schema) (parser.Field, error) {
	switch s.Type {
	case "string":
		return parser.Field{Kind: parser.KindString}, nil
	case "number", "integer":
		return parser.Field{Kind: parser.KindNumber}, nil
	case "boolean":
		return parser.Field{Kind: parser.KindBoolean}, nil
	case "object":
		return parser.Field{Kind: parser.KindObject}, nil
	case "array":
		if s.Items == nil {
			return parser.Field{}, fmt.Errorf("array field declares no item type")
		}
		switch s.Items.Type {
		case "string":
			return parser.Field{Kind: parser.KindStringArray}, nil
		case "number", "integer":
			return parser.Field{Kind: parser.KindNumberArray}, nil
		case "boolean":
			return parser.Field{Kind: parser.KindBooleanArray}, nil
		default:
			return parser.Field{}, fmt.Errorf("unsupported array item type %q", s.Items.Type)
		}
	default:
		return parser.Field{}, fmt.Errorf("unsupported json-schema type %q", s.Type)
	}
}

// PromptBlock renders v's reflected JSON schema as a fenced code block meant
// to be appended to a compiled instruction prompt, giving the model
// machine-readable guidance about the output shape the response parser expects.
func PromptBlock(v any) (string, error) {
	data, err := json.MarshalIndent(jsonschema.Reflect(v), "", "  ")
	if err != nil {
		return "", fmt.Errorf("schema: marshal: %w", err)
	}
	return "```json\n" + string(data) + "\n```", nil
}
