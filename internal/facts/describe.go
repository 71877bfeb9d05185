package facts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Describe renders the document text stored alongside a fact's metadata.
// The text feeds the store's full-text search.
func Describe(f Fact) string {
	switch v := f.(type) {
	case MethodCall:
		return fmt.Sprintf("Method call: %s calls %s at %s", v.Caller, v.Callee, v.Location())
	case MethodDefinition:
		return fmt.Sprintf("Method definition: %s %s %s(%s) in %s at %s",
			v.AccessModifier, v.ReturnType, v.Method, JoinList(v.Parameters), v.Class, v.Location())
	case ClassDefinition:
		s := fmt.Sprintf("Class definition: %s %s in namespace %s", v.AccessModifier, v.Class, v.Namespace)
		if v.BaseClass != "" {
			s += " extends " + v.BaseClass
		}
		if len(v.Interfaces) > 0 {
			s += " implements " + JoinList(v.Interfaces)
		}
		return s + " at " + v.Location().String()
	case InterfaceDefinition:
		return fmt.Sprintf("Interface definition: %s %s in namespace %s at %s", v.AccessModifier, v.Interface, v.Namespace, v.Location())
	case StructDefinition:
		return fmt.Sprintf("Struct definition: %s %s in namespace %s at %s", v.AccessModifier, v.Struct, v.Namespace, v.Location())
	case EnumDefinition:
		return fmt.Sprintf("Enum definition: %s %s (%s) at %s", v.AccessModifier, v.Enum, JoinList(v.Members), v.Location())
	case PropertyDefinition:
		return fmt.Sprintf("Property definition: %s %s %s in %s at %s", v.AccessModifier, v.PropertyType, v.Property, v.Class, v.Location())
	case FieldDefinition:
		return fmt.Sprintf("Field definition: %s %s %s in %s at %s", v.AccessModifier, v.FieldType, v.Field, v.Class, v.Location())
	}
	return ""
}

// Fingerprint hashes the normalized metadata of f. Two facts with the same
// identity key and fingerprint are interchangeable in the store.
// Encoding is length-prefixed (len:key len:value ...) over sorted keys, SHA-256 hex.
func Fingerprint(f Fact) string {
	meta := f.Metadata()
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		writeField(&b, k)
		writeField(&b, meta[k])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeField(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// Name returns the short display name of a definition fact, or the callee
// for a call.
func Name(f Fact) string {
	switch v := f.(type) {
	case MethodCall:
		return v.Callee
	case MethodDefinition:
		return v.MethodName
	case ClassDefinition:
		return v.ClassName
	case InterfaceDefinition:
		return v.InterfaceName
	case StructDefinition:
		return v.StructName
	case EnumDefinition:
		return v.EnumName
	case PropertyDefinition:
		return v.PropertyName
	case FieldDefinition:
		return v.FieldName
	}
	return ""
}
