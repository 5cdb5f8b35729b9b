// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"

	"github.com/spf13/pflag"
)

// JSONOutput is an embeddable params block providing the conventional
// --json flag. Commands embed it anonymously in their params struct and
// call EmitJSON at the end of Run:
//
//	if done, err := params.EmitJSON(result); done || err != nil {
//	    return err
//	}
//	// ... human-readable output ...
type JSONOutput struct {
	OutputJSON bool `json:"-" flag:"json" desc:"output as JSON"`
}

// AddFlags registers the --json flag. Implements FlagBinder so the
// embedded block binds even without struct tags on the embedding side.
func (j *JSONOutput) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.BoolVar(&j.OutputJSON, "json", false, "output as JSON")
}

// EmitJSON writes result as indented JSON to stdout when --json was set.
// Returns true when JSON was written (the command should skip its
// human-readable output path).
func (j *JSONOutput) EmitJSON(result any) (bool, error) {
	if !j.OutputJSON {
		return false, nil
	}
	if err := WriteJSON(result); err != nil {
		return true, err
	}
	return true, nil
}

// WriteJSON writes v as indented JSON to stdout. Nil slices are
// normalized to empty slices first, so list-shaped results always
// serialize as [] rather than null.
func WriteJSON(v any) error {
	v = normalizeNilSlice(v)
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// normalizeNilSlice converts a nil slice value to an empty slice of the
// same type. Non-slice values and non-nil slices pass through unchanged.
func normalizeNilSlice(v any) any {
	value := reflect.ValueOf(v)
	if value.Kind() == reflect.Slice && value.IsNil() {
		return reflect.MakeSlice(value.Type(), 0, 0).Interface()
	}
	return v
}
