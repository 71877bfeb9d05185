package facts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Rule fragments shared by the per-type schemas.
const (
	ruleText     = "required,nonblank"
	ruleLine     = "required,linenumber"
	ruleFlag     = "required,boolean"
	ruleOptFlag  = "omitempty,boolean"
	ruleOptCount = "omitempty,count"
)

// schemas lists the validation rules per fact type, keyed by metadata field.
// Optional free-text fields carry no rule.
var schemas = map[Type]map[string]interface{}{
	TypeMethodCall: {
		"caller":           ruleText,
		"callee":           ruleText,
		"caller_class":     ruleText,
		"callee_class":     ruleText,
		"caller_namespace": ruleText,
		"callee_namespace": ruleText,
		"file_path":        ruleText,
		"line_number":      ruleLine,
	},
	TypeMethodDefinition: {
		"method":          ruleText,
		"method_name":     ruleText,
		"class":           ruleText,
		"namespace":       ruleText,
		"return_type":     ruleText,
		"access_modifier": ruleText,
		"is_static":       ruleFlag,
		"is_virtual":      ruleFlag,
		"is_abstract":     ruleFlag,
		"is_override":     ruleFlag,
		"is_async":        ruleOptFlag,
		"is_extension":    ruleOptFlag,
		"file_path":       ruleText,
		"line_number":     ruleLine,
	},
	TypeClassDefinition: {
		"class":           ruleText,
		"class_name":      ruleText,
		"namespace":       ruleText,
		"access_modifier": ruleText,
		"is_static":       ruleFlag,
		"is_abstract":     ruleFlag,
		"is_sealed":       ruleFlag,
		"method_count":    ruleOptCount,
		"property_count":  ruleOptCount,
		"field_count":     ruleOptCount,
		"file_path":       ruleText,
		"line_number":     ruleLine,
	},
	TypeInterfaceDefinition: {
		"interface":       ruleText,
		"interface_name":  ruleText,
		"namespace":       ruleText,
		"access_modifier": ruleText,
		"method_count":    ruleOptCount,
		"property_count":  ruleOptCount,
		"file_path":       ruleText,
		"line_number":     ruleLine,
	},
	TypeStructDefinition: {
		"struct":          ruleText,
		"struct_name":     ruleText,
		"namespace":       ruleText,
		"access_modifier": ruleText,
		"is_readonly":     ruleOptFlag,
		"method_count":    ruleOptCount,
		"property_count":  ruleOptCount,
		"field_count":     ruleOptCount,
		"file_path":       ruleText,
		"line_number":     ruleLine,
	},
	TypeEnumDefinition: {
		"enum":            ruleText,
		"enum_name":       ruleText,
		"namespace":       ruleText,
		"access_modifier": ruleText,
		"member_count":    ruleOptCount,
		"file_path":       ruleText,
		"line_number":     ruleLine,
	},
	TypePropertyDefinition: {
		"property":        ruleText,
		"property_name":   ruleText,
		"class":           ruleText,
		"namespace":       ruleText,
		"property_type":   ruleText,
		"access_modifier": ruleText,
		"has_getter":      ruleOptFlag,
		"has_setter":      ruleOptFlag,
		"is_static":       ruleOptFlag,
		"is_virtual":      ruleOptFlag,
		"is_abstract":     ruleOptFlag,
		"is_override":     ruleOptFlag,
		"file_path":       ruleText,
		"line_number":     ruleLine,
	},
	TypeFieldDefinition: {
		"field":           ruleText,
		"field_name":      ruleText,
		"class":           ruleText,
		"namespace":       ruleText,
		"field_type":      ruleText,
		"access_modifier": ruleText,
		"is_static":       ruleOptFlag,
		"is_readonly":     ruleOptFlag,
		"is_const":        ruleOptFlag,
		"is_volatile":     ruleOptFlag,
		"file_path":       ruleText,
		"line_number":     ruleLine,
	},
}

// RequiredFields returns the metadata keys that must be present for t, sorted.
func RequiredFields(t Type) []string {
	var out []string
	for field, rule := range schemas[t] {
		if strings.HasPrefix(rule.(string), "required") {
			out = append(out, field)
		}
	}
	sort.Strings(out)
	return out
}

// FieldError is one violated rule.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationResult is the outcome of validating one record. Fact is set
// only when Valid, and is the normalized typed fact.
type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
	Fact   Fact         `json:"-"`
}

// Err folds the errors into a single error, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Validator checks records against the per-type schemas.
// It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a validator with the fact-specific rules registered.
func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("linenumber", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(strings.TrimSpace(fl.Field().String()))
		return err == nil && n >= 1
	})
	_ = v.RegisterValidation("count", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		if s == "" {
			return true
		}
		n, err := strconv.Atoi(s)
		return err == nil && n >= 0
	})
	return &Validator{v: v}
}

// Validate checks rec and reports every violated rule, sorted by field.
// It never panics on malformed input.
func (val *Validator) Validate(rec Record) ValidationResult {
	raw := rec.Type()
	if raw == "" {
		return invalid(FieldError{Field: TypeKey, Rule: "required", Message: "is required"})
	}
	t, ok := ParseType(raw)
	if !ok {
		return invalid(FieldError{Field: TypeKey, Rule: "oneof", Message: fmt.Sprintf("unknown fact type %q", raw)})
	}

	data := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		data[k] = v
	}

	var errs []FieldError
	for field, res := range val.v.ValidateMapCtx(context.Background(), data, schemas[t]) {
		errs = append(errs, toFieldError(field, res))
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
		return ValidationResult{Valid: false, Errors: errs}
	}

	f, err := Decode(rec)
	if err != nil {
		return invalid(FieldError{Field: TypeKey, Rule: "decode", Message: err.Error()})
	}
	return ValidationResult{Valid: true, Fact: f}
}

// IndexedResult pairs a validation result with the record's batch position.
type IndexedResult struct {
	Index int `json:"index"`
	ValidationResult
}

// ValidateBatch validates every record and returns only the failures.
func (val *Validator) ValidateBatch(recs []Record) (valid []Fact, failures []IndexedResult) {
	for i, rec := range recs {
		res := val.Validate(rec)
		if res.Valid {
			valid = append(valid, res.Fact)
			continue
		}
		failures = append(failures, IndexedResult{Index: i, ValidationResult: res})
	}
	return valid, failures
}

func invalid(e FieldError) ValidationResult {
	return ValidationResult{Valid: false, Errors: []FieldError{e}}
}

func toFieldError(field string, res interface{}) FieldError {
	var verrs validator.ValidationErrors
	if err, ok := res.(error); ok && errors.As(err, &verrs) && len(verrs) > 0 {
		tag := verrs[0].Tag()
		return FieldError{Field: field, Rule: tag, Message: ruleMessage(tag)}
	}
	return FieldError{Field: field, Rule: "invalid", Message: fmt.Sprint(res)}
}

func ruleMessage(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "nonblank":
		return "must not be blank"
	case "linenumber":
		return "must be an integer >= 1"
	case "boolean":
		return "must be true or false"
	case "count":
		return "must be a non-negative integer"
	default:
		return "failed rule " + tag
	}
}
