/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	_ "embed"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed scene.schema.json
var schemaJSON []byte

// Schema returns the JSON schema for persisted scene documents.
func Schema() []byte { return append([]byte(nil), schemaJSON...) }

// ValidateDocument checks raw document JSON against the embedded schema.
func ValidateDocument(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("scene document invalid: %s: %w", strings.Join(msgs, "; "), ErrInvalidObject)
}

// LoadDocument validates and decodes a document.
func LoadDocument(data []byte) (Document, error) {
	if err := ValidateDocument(data); err != nil {
		return Document{}, err
	}
	return UnmarshalDocument(data)
}
