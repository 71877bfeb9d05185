package facts

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Record is the flat, untyped form of a fact as the front end and the
// document store see it: string keys, string values, "type" discriminator.
type Record map[string]string

// Type returns the raw discriminator.
func (r Record) Type() string {
	return strings.TrimSpace(r[TypeKey])
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

var (
	// ErrUntyped is returned for metadata without a "type" key.
	ErrUntyped = errors.New("fact has no type")
	// ErrUnknownType is returned for a discriminator outside AllTypes.
	ErrUnknownType = errors.New("unknown fact type")
)

// newFact returns a pointer to the zero value of t's variant.
func newFact(t Type) interface{} {
	switch t {
	case TypeMethodCall:
		return &MethodCall{}
	case TypeMethodDefinition:
		return &MethodDefinition{}
	case TypeClassDefinition:
		return &ClassDefinition{}
	case TypeInterfaceDefinition:
		return &InterfaceDefinition{}
	case TypeStructDefinition:
		return &StructDefinition{}
	case TypeEnumDefinition:
		return &EnumDefinition{}
	case TypePropertyDefinition:
		return &PropertyDefinition{}
	case TypeFieldDefinition:
		return &FieldDefinition{}
	}
	return nil
}

// Decode parses store metadata into its typed variant. Absent optional
// keys decode to zero values; malformed scalars are errors.
func Decode(meta map[string]string) (Fact, error) {
	raw, ok := meta[TypeKey]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, ErrUntyped
	}
	t, ok := ParseType(strings.TrimSpace(raw))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, raw)
	}

	target := newFact(t)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: scalarHook,
		Result:     target,
	})
	if err != nil {
		return nil, err
	}

	// every known key starts empty so absent lists decode to []string{}
	input := make(map[string]interface{}, len(meta))
	for _, k := range fieldKeys(t) {
		input[k] = ""
	}
	for k, v := range meta {
		if k == TypeKey {
			continue
		}
		input[k] = v
	}
	if err := dec.Decode(input); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}

	return reflect.ValueOf(target).Elem().Interface().(Fact), nil
}

// fieldKeys returns the mapstructure keys of t's variant.
func fieldKeys(t Type) []string {
	rt := reflect.TypeOf(newFact(t)).Elem()
	keys := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		if k := rt.Field(i).Tag.Get("mapstructure"); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// scalarHook converts the string-typed metadata into the struct field types.
func scalarHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	switch to.Kind() {
	case reflect.String:
		return s, nil
	case reflect.Slice:
		if to.Elem().Kind() == reflect.String {
			return SplitList(s), nil
		}
	case reflect.Int:
		if s == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", s)
		}
		return n, nil
	case reflect.Bool:
		if s == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", s)
		}
		return b, nil
	}
	return data, nil
}
