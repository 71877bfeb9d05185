// Package facts defines the typed code facts stored in a project index,
// how they are validated, and how they map to and from store metadata.
package facts

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the fact discriminator stored under the "type" metadata key.
type Type string

const (
	TypeMethodCall          Type = "method_call"
	TypeMethodDefinition    Type = "method_definition"
	TypeClassDefinition     Type = "class_definition"
	TypeInterfaceDefinition Type = "interface_definition"
	TypeStructDefinition    Type = "struct_definition"
	TypeEnumDefinition      Type = "enum_definition"
	TypePropertyDefinition  Type = "property_definition"
	TypeFieldDefinition     Type = "field_definition"
)

// TypeKey is the metadata key carrying the discriminator.
const TypeKey = "type"

// AllTypes lists every fact type in presentation order.
var AllTypes = []Type{
	TypeMethodCall,
	TypeMethodDefinition,
	TypeClassDefinition,
	TypeInterfaceDefinition,
	TypeStructDefinition,
	TypeEnumDefinition,
	TypePropertyDefinition,
	TypeFieldDefinition,
}

// ParseType returns the Type named by s. Matching is exact.
func ParseType(s string) (Type, bool) {
	for _, t := range AllTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Location is the source position a fact was extracted from.
type Location struct {
	FilePath   string `json:"filePath"`
	LineNumber int    `json:"lineNumber"`
}

func (l Location) String() string {
	return l.FilePath + ":" + strconv.Itoa(l.LineNumber)
}

// Fact is one of the concrete fact variants below. The set is closed.
type Fact interface {
	Type() Type
	// IdentityKey identifies the fact among facts of the same type.
	// It is stable across re-extraction of unchanged source.
	IdentityKey() string
	Location() Location
	// Metadata renders the normalized flat form: every known key present,
	// optional values empty rather than absent.
	Metadata() map[string]string
	sealed()
}

// Call kinds reported by the front end in method_call.call_kind.
const (
	CallKindInvocation  = "invocation"
	CallKindAttribute   = "attribute"
	CallKindInitializer = "initializer"
	CallKindConstructor = "constructor"
	CallKindDelegate    = "delegate"
)

// MethodCall is a call edge from Caller to Callee at a call site.
type MethodCall struct {
	Caller          string `mapstructure:"caller" json:"caller"`
	Callee          string `mapstructure:"callee" json:"callee"`
	CallerClass     string `mapstructure:"caller_class" json:"callerClass"`
	CalleeClass     string `mapstructure:"callee_class" json:"calleeClass"`
	CallerNamespace string `mapstructure:"caller_namespace" json:"callerNamespace"`
	CalleeNamespace string `mapstructure:"callee_namespace" json:"calleeNamespace"`
	CallKind        string `mapstructure:"call_kind" json:"callKind,omitempty"`
	Arguments       string `mapstructure:"arguments" json:"arguments,omitempty"`
	FilePath        string `mapstructure:"file_path" json:"filePath"`
	LineNumber      int    `mapstructure:"line_number" json:"lineNumber"`
}

func (MethodCall) Type() Type { return TypeMethodCall }

func (f MethodCall) IdentityKey() string {
	return CallKey(f.Caller, f.Callee, f.FilePath, f.LineNumber)
}

func (f MethodCall) Location() Location { return Location{f.FilePath, f.LineNumber} }

func (f MethodCall) Metadata() map[string]string {
	return map[string]string{
		TypeKey:            string(TypeMethodCall),
		"caller":           f.Caller,
		"callee":           f.Callee,
		"caller_class":     f.CallerClass,
		"callee_class":     f.CalleeClass,
		"caller_namespace": f.CallerNamespace,
		"callee_namespace": f.CalleeNamespace,
		"call_kind":        f.CallKind,
		"arguments":        f.Arguments,
		"file_path":        f.FilePath,
		"line_number":      strconv.Itoa(f.LineNumber),
	}
}

func (MethodCall) sealed() {}

// CallKey formats the identity of a call edge: caller->callee@file:line.
func CallKey(caller, callee, filePath string, line int) string {
	return fmt.Sprintf("%s->%s@%s:%d", caller, callee, filePath, line)
}

// MethodDefinition describes a method, constructor or accessor.
type MethodDefinition struct {
	Method         string   `mapstructure:"method" json:"method"`
	MethodName     string   `mapstructure:"method_name" json:"methodName"`
	Class          string   `mapstructure:"class" json:"class"`
	Namespace      string   `mapstructure:"namespace" json:"namespace"`
	ReturnType     string   `mapstructure:"return_type" json:"returnType"`
	AccessModifier string   `mapstructure:"access_modifier" json:"accessModifier"`
	Parameters     []string `mapstructure:"parameters" json:"parameters"`
	IsStatic       bool     `mapstructure:"is_static" json:"isStatic"`
	IsVirtual      bool     `mapstructure:"is_virtual" json:"isVirtual"`
	IsAbstract     bool     `mapstructure:"is_abstract" json:"isAbstract"`
	IsOverride     bool     `mapstructure:"is_override" json:"isOverride"`
	IsAsync        bool     `mapstructure:"is_async" json:"isAsync"`
	IsExtension    bool     `mapstructure:"is_extension" json:"isExtension"`
	FilePath       string   `mapstructure:"file_path" json:"filePath"`
	LineNumber     int      `mapstructure:"line_number" json:"lineNumber"`
}

func (MethodDefinition) Type() Type { return TypeMethodDefinition }
func (f MethodDefinition) IdentityKey() string { return f.Method }
func (f MethodDefinition) Location() Location { return Location{f.FilePath, f.LineNumber} }
func (MethodDefinition) sealed() {}

func (f MethodDefinition) Metadata() map[string]string {
	return map[string]string{
		TypeKey:           string(TypeMethodDefinition),
		"method":          f.Method,
		"method_name":     f.MethodName,
		"class":           f.Class,
		"namespace":       f.Namespace,
		"return_type":     f.ReturnType,
		"access_modifier": f.AccessModifier,
		"parameters":      JoinList(f.Parameters),
		"is_static":       formatBool(f.IsStatic),
		"is_virtual":      formatBool(f.IsVirtual),
		"is_abstract":     formatBool(f.IsAbstract),
		"is_override":     formatBool(f.IsOverride),
		"is_async":        formatBool(f.IsAsync),
		"is_extension":    formatBool(f.IsExtension),
		"file_path":       f.FilePath,
		"line_number":     strconv.Itoa(f.LineNumber),
	}
}

// ClassDefinition describes a class.
type ClassDefinition struct {
	Class          string   `mapstructure:"class" json:"class"`
	ClassName      string   `mapstructure:"class_name" json:"className"`
	Namespace      string   `mapstructure:"namespace" json:"namespace"`
	AccessModifier string   `mapstructure:"access_modifier" json:"accessModifier"`
	IsStatic       bool     `mapstructure:"is_static" json:"isStatic"`
	IsAbstract     bool     `mapstructure:"is_abstract" json:"isAbstract"`
	IsSealed       bool     `mapstructure:"is_sealed" json:"isSealed"`
	BaseClass      string   `mapstructure:"base_class" json:"baseClass"`
	Interfaces     []string `mapstructure:"interfaces" json:"interfaces"`
	MethodCount    int      `mapstructure:"method_count" json:"methodCount"`
	PropertyCount  int      `mapstructure:"property_count" json:"propertyCount"`
	FieldCount     int      `mapstructure:"field_count" json:"fieldCount"`
	FilePath       string   `mapstructure:"file_path" json:"filePath"`
	LineNumber     int      `mapstructure:"line_number" json:"lineNumber"`
}

func (ClassDefinition) Type() Type { return TypeClassDefinition }
func (f ClassDefinition) IdentityKey() string { return f.Class }
func (f ClassDefinition) Location() Location { return Location{f.FilePath, f.LineNumber} }
func (ClassDefinition) sealed() {}

func (f ClassDefinition) Metadata() map[string]string {
	return map[string]string{
		TypeKey:           string(TypeClassDefinition),
		"class":           f.Class,
		"class_name":      f.ClassName,
		"namespace":       f.Namespace,
		"access_modifier": f.AccessModifier,
		"is_static":       formatBool(f.IsStatic),
		"is_abstract":     formatBool(f.IsAbstract),
		"is_sealed":       formatBool(f.IsSealed),
		"base_class":      f.BaseClass,
		"interfaces":      JoinList(f.Interfaces),
		"method_count":    strconv.Itoa(f.MethodCount),
		"property_count":  strconv.Itoa(f.PropertyCount),
		"field_count":     strconv.Itoa(f.FieldCount),
		"file_path":       f.FilePath,
		"line_number":     strconv.Itoa(f.LineNumber),
	}
}

// InterfaceDefinition describes an interface.
type InterfaceDefinition struct {
	Interface      string   `mapstructure:"interface" json:"interface"`
	InterfaceName  string   `mapstructure:"interface_name" json:"interfaceName"`
	Namespace      string   `mapstructure:"namespace" json:"namespace"`
	AccessModifier string   `mapstructure:"access_modifier" json:"accessModifier"`
	BaseInterfaces []string `mapstructure:"base_interfaces" json:"baseInterfaces"`
	MethodCount    int      `mapstructure:"method_count" json:"methodCount"`
	PropertyCount  int      `mapstructure:"property_count" json:"propertyCount"`
	FilePath       string   `mapstructure:"file_path" json:"filePath"`
	LineNumber     int      `mapstructure:"line_number" json:"lineNumber"`
}

func (InterfaceDefinition) Type() Type { return TypeInterfaceDefinition }
func (f InterfaceDefinition) IdentityKey() string { return f.Interface }
func (f InterfaceDefinition) Location() Location { return Location{f.FilePath, f.LineNumber} }
func (InterfaceDefinition) sealed() {}

func (f InterfaceDefinition) Metadata() map[string]string {
	return map[string]string{
		TypeKey:           string(TypeInterfaceDefinition),
		"interface":       f.Interface,
		"interface_name":  f.InterfaceName,
		"namespace":       f.Namespace,
		"access_modifier": f.AccessModifier,
		"base_interfaces": JoinList(f.BaseInterfaces),
		"method_count":    strconv.Itoa(f.MethodCount),
		"property_count":  strconv.Itoa(f.PropertyCount),
		"file_path":       f.FilePath,
		"line_number":     strconv.Itoa(f.LineNumber),
	}
}

// StructDefinition describes a value type.
type StructDefinition struct {
	Struct         string   `mapstructure:"struct" json:"struct"`
	StructName     string   `mapstructure:"struct_name" json:"structName"`
	Namespace      string   `mapstructure:"namespace" json:"namespace"`
	AccessModifier string   `mapstructure:"access_modifier" json:"accessModifier"`
	IsReadonly     bool     `mapstructure:"is_readonly" json:"isReadonly"`
	Interfaces     []string `mapstructure:"interfaces" json:"interfaces"`
	MethodCount    int      `mapstructure:"method_count" json:"methodCount"`
	PropertyCount  int      `mapstructure:"property_count" json:"propertyCount"`
	FieldCount     int      `mapstructure:"field_count" json:"fieldCount"`
	FilePath       string   `mapstructure:"file_path" json:"filePath"`
	LineNumber     int      `mapstructure:"line_number" json:"lineNumber"`
}

func (StructDefinition) Type() Type { return TypeStructDefinition }
func (f StructDefinition) IdentityKey() string { return f.Struct }
func (f StructDefinition) Location() Location { return Location{f.FilePath, f.LineNumber} }
func (StructDefinition) sealed() {}

func (f StructDefinition) Metadata() map[string]string {
	return map[string]string{
		TypeKey:           string(TypeStructDefinition),
		"struct":          f.Struct,
		"struct_name":     f.StructName,
		"namespace":       f.Namespace,
		"access_modifier": f.AccessModifier,
		"is_readonly":     formatBool(f.IsReadonly),
		"interfaces":      JoinList(f.Interfaces),
		"method_count":    strconv.Itoa(f.MethodCount),
		"property_count":  strconv.Itoa(f.PropertyCount),
		"field_count":     strconv.Itoa(f.FieldCount),
		"file_path":       f.FilePath,
		"line_number":     strconv.Itoa(f.LineNumber),
	}
}

// EnumDefinition describes an enumeration.
type EnumDefinition struct {
	Enum           string   `mapstructure:"enum" json:"enum"`
	EnumName       string   `mapstructure:"enum_name" json:"enumName"`
	Namespace      string   `mapstructure:"namespace" json:"namespace"`
	AccessModifier string   `mapstructure:"access_modifier" json:"accessModifier"`
	UnderlyingType string   `mapstructure:"underlying_type" json:"underlyingType"`
	Members        []string `mapstructure:"members" json:"members"`
	MemberCount    int      `mapstructure:"member_count" json:"memberCount"`
	FilePath       string   `mapstructure:"file_path" json:"filePath"`
	LineNumber     int      `mapstructure:"line_number" json:"lineNumber"`
}

func (EnumDefinition) Type() Type { return TypeEnumDefinition }
func (f EnumDefinition) IdentityKey() string { return f.Enum }
func (f EnumDefinition) Location() Location { return Location{f.FilePath, f.LineNumber} }
func (EnumDefinition) sealed() {}

func (f EnumDefinition) Metadata() map[string]string {
	return map[string]string{
		TypeKey:           string(TypeEnumDefinition),
		"enum":            f.Enum,
		"enum_name":       f.EnumName,
		"namespace":       f.Namespace,
		"access_modifier": f.AccessModifier,
		"underlying_type": f.UnderlyingType,
		"members":         JoinList(f.Members),
		"member_count":    strconv.Itoa(f.MemberCount),
		"file_path":       f.FilePath,
		"line_number":     strconv.Itoa(f.LineNumber),
	}
}

// PropertyDefinition describes a property with optional accessors.
type PropertyDefinition struct {
	Property       string `mapstructure:"property" json:"property"`
	PropertyName   string `mapstructure:"property_name" json:"propertyName"`
	Class          string `mapstructure:"class" json:"class"`
	Namespace      string `mapstructure:"namespace" json:"namespace"`
	PropertyType   string `mapstructure:"property_type" json:"propertyType"`
	AccessModifier string `mapstructure:"access_modifier" json:"accessModifier"`
	HasGetter      bool   `mapstructure:"has_getter" json:"hasGetter"`
	HasSetter      bool   `mapstructure:"has_setter" json:"hasSetter"`
	IsStatic       bool   `mapstructure:"is_static" json:"isStatic"`
	IsVirtual      bool   `mapstructure:"is_virtual" json:"isVirtual"`
	IsAbstract     bool   `mapstructure:"is_abstract" json:"isAbstract"`
	IsOverride     bool   `mapstructure:"is_override" json:"isOverride"`
	FilePath       string `mapstructure:"file_path" json:"filePath"`
	LineNumber     int    `mapstructure:"line_number" json:"lineNumber"`
}

func (PropertyDefinition) Type() Type { return TypePropertyDefinition }
func (f PropertyDefinition) IdentityKey() string { return f.Property }
func (f PropertyDefinition) Location() Location { return Location{f.FilePath, f.LineNumber} }
func (PropertyDefinition) sealed() {}

func (f PropertyDefinition) Metadata() map[string]string {
	return map[string]string{
		TypeKey:           string(TypePropertyDefinition),
		"property":        f.Property,
		"property_name":   f.PropertyName,
		"class":           f.Class,
		"namespace":       f.Namespace,
		"property_type":   f.PropertyType,
		"access_modifier": f.AccessModifier,
		"has_getter":      formatBool(f.HasGetter),
		"has_setter":      formatBool(f.HasSetter),
		"is_static":       formatBool(f.IsStatic),
		"is_virtual":      formatBool(f.IsVirtual),
		"is_abstract":     formatBool(f.IsAbstract),
		"is_override":     formatBool(f.IsOverride),
		"file_path":       f.FilePath,
		"line_number":     strconv.Itoa(f.LineNumber),
	}
}

// FieldDefinition describes a field or constant.
type FieldDefinition struct {
	Field          string `mapstructure:"field" json:"field"`
	FieldName      string `mapstructure:"field_name" json:"fieldName"`
	Class          string `mapstructure:"class" json:"class"`
	Namespace      string `mapstructure:"namespace" json:"namespace"`
	FieldType      string `mapstructure:"field_type" json:"fieldType"`
	AccessModifier string `mapstructure:"access_modifier" json:"accessModifier"`
	IsStatic       bool   `mapstructure:"is_static" json:"isStatic"`
	IsReadonly     bool   `mapstructure:"is_readonly" json:"isReadonly"`
	IsConst        bool   `mapstructure:"is_const" json:"isConst"`
	IsVolatile     bool   `mapstructure:"is_volatile" json:"isVolatile"`
	FilePath       string `mapstructure:"file_path" json:"filePath"`
	LineNumber     int    `mapstructure:"line_number" json:"lineNumber"`
}

func (FieldDefinition) Type() Type { return TypeFieldDefinition }
func (f FieldDefinition) IdentityKey() string { return f.Field }
func (f FieldDefinition) Location() Location { return Location{f.FilePath, f.LineNumber} }
func (FieldDefinition) sealed() {}

func (f FieldDefinition) Metadata() map[string]string {
	return map[string]string{
		TypeKey:           string(TypeFieldDefinition),
		"field":           f.Field,
		"field_name":      f.FieldName,
		"class":           f.Class,
		"namespace":       f.Namespace,
		"field_type":      f.FieldType,
		"access_modifier": f.AccessModifier,
		"is_static":       formatBool(f.IsStatic),
		"is_readonly":     formatBool(f.IsReadonly),
		"is_const":        formatBool(f.IsConst),
		"is_volatile":     formatBool(f.IsVolatile),
		"file_path":       f.FilePath,
		"line_number":     strconv.Itoa(f.LineNumber),
	}
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// SplitList splits a comma-joined collection field. Commas nested inside
// <>, () or [] belong to the element (e.g. "Dictionary<string, int> map").
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				if item := strings.TrimSpace(s[start:i]); item != "" {
					out = append(out, item)
				}
				start = i + 1
			}
		}
	}
	if item := strings.TrimSpace(s[start:]); item != "" {
		out = append(out, item)
	}
	if out == nil {
		return []string{}
	}
	return out
}

// JoinList is the inverse of SplitList.
func JoinList(items []string) string {
	return strings.Join(items, ", ")
}
