// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagBinder is implemented by field types that know how to register
// their own flags. Fields whose (pointer) type implements this interface
// are bound by calling AddFlags instead of reflective tag inspection.
type FlagBinder interface {
	AddFlags(flagSet *pflag.FlagSet)
}

// FlagsFromParams builds a pflag.FlagSet from the tagged fields of a params
// struct. The params argument must be a pointer to a struct. Fields are bound
// using these tags:
//
//	flag:"name" or flag:"name,shorthand" — flag name (required to bind)
//	desc:"..." — help text
//	default:"..." — default value, parsed per the field type
//
// Supported field types: string, bool, int, int64, float64, time.Duration,
// and []string. Anonymous embedded structs are recursed into, so shared
// option blocks like JSONOutput can be mixed in.
//
// The commandName is used only for error messages. Binding errors are
// programming errors (bad tags, unsupported types), so this panics rather
// than returning an error.
func FlagsFromParams(commandName string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(commandName, pflag.ContinueOnError)
	if err := BindFlags(flagSet, params); err != nil {
		panic(fmt.Sprintf("cli: binding flags for %q: %v", commandName, err))
	}
	return flagSet
}

// BindFlags registers flags on flagSet for each tagged field of the params
// struct. See FlagsFromParams for the tag format.
func BindFlags(flagSet *pflag.FlagSet, params any) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Pointer || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStructFields(flagSet, value.Elem())
}

func bindStructFields(flagSet *pflag.FlagSet, structValue reflect.Value) error {
	structType := structValue.Type()

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldValue := structValue.Field(i)

		if !field.IsExported() {
			continue
		}

		// Fields implementing FlagBinder register themselves.
		if fieldValue.CanAddr() {
			if binder, ok := fieldValue.Addr().Interface().(FlagBinder); ok {
				binder.AddFlags(flagSet)
				continue
			}
		}

		// Recurse into anonymous embedded structs.
		if field.Anonymous && fieldValue.Kind() == reflect.Struct {
			if err := bindStructFields(flagSet, fieldValue); err != nil {
				return err
			}
			continue
		}

		name, shorthand, ok := parseFlagTag(field.Tag.Get("flag"))
		if !ok {
			continue
		}

		if err := bindField(flagSet, field, fieldValue, name, shorthand); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}

	return nil
}

// parseFlagTag splits a flag tag into name and optional shorthand.
// Returns ok=false when the tag is empty or explicitly "-".
func parseFlagTag(tag string) (name, shorthand string, ok bool) {
	if tag == "" || tag == "-" {
		return "", "", false
	}
	name, shorthand, found := strings.Cut(tag, ",")
	if found && len(shorthand) != 1 {
		// Malformed shorthand; bind by long name only.
		shorthand = ""
	}
	return name, shorthand, true
}

func bindField(flagSet *pflag.FlagSet, field reflect.StructField, fieldValue reflect.Value, name, shorthand string) error {
	desc := field.Tag.Get("desc")
	defaultTag := field.Tag.Get("default")

	switch pointer := fieldValue.Addr().Interface().(type) {
	case *string:
		flagSet.StringVarP(pointer, name, shorthand, defaultTag, desc)
	case *bool:
		defaultValue, err := parseBoolDefault(defaultTag)
		if err != nil {
			return err
		}
		flagSet.BoolVarP(pointer, name, shorthand, defaultValue, desc)
	case *int:
		defaultValue, err := parseIntDefault(defaultTag)
		if err != nil {
			return err
		}
		flagSet.IntVarP(pointer, name, shorthand, defaultValue, desc)
	case *int64:
		defaultValue, err := parseInt64Default(defaultTag)
		if err != nil {
			return err
		}
		flagSet.Int64VarP(pointer, name, shorthand, defaultValue, desc)
	case *float64:
		defaultValue, err := parseFloat64Default(defaultTag)
		if err != nil {
			return err
		}
		flagSet.Float64VarP(pointer, name, shorthand, defaultValue, desc)
	case *time.Duration:
		defaultValue, err := parseDurationDefault(defaultTag)
		if err != nil {
			return err
		}
		flagSet.DurationVarP(pointer, name, shorthand, defaultValue, desc)
	case *[]string:
		var defaultValue []string
		if defaultTag != "" {
			defaultValue = strings.Split(defaultTag, ",")
		}
		flagSet.StringSliceVarP(pointer, name, shorthand, defaultValue, desc)
	default:
		return fmt.Errorf("unsupported flag type %s", field.Type)
	}

	return nil
}

func parseBoolDefault(tag string) (bool, error) {
	if tag == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(tag)
	if err != nil {
		return false, fmt.Errorf("invalid bool default %q: %w", tag, err)
	}
	return value, nil
}

func parseIntDefault(tag string) (int, error) {
	if tag == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(tag)
	if err != nil {
		return 0, fmt.Errorf("invalid int default %q: %w", tag, err)
	}
	return value, nil
}

func parseInt64Default(tag string) (int64, error) {
	if tag == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(tag, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid int64 default %q: %w", tag, err)
	}
	return value, nil
}

func parseFloat64Default(tag string) (float64, error) {
	if tag == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(tag, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float64 default %q: %w", tag, err)
	}
	return value, nil
}

func parseDurationDefault(tag string) (time.Duration, error) {
	if tag == "" {
		return 0, nil
	}
	value, err := time.ParseDuration(tag)
	if err != nil {
		return 0, fmt.Errorf("invalid duration default %q: %w", tag, err)
	}
	return value, nil
}
