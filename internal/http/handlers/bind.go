package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

const validationFailed = "Validation failed"

var registerOnce sync.Once

// RegisterValidators adds the custom rules the request types use to gin's
// validator. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("hasdigit", hasDigit)
		_ = v.RegisterValidation("maxbytes", maxBytes)
		_ = v.RegisterValidation("immutable", absent, true)
	})
}

func hasDigit(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsDigit) >= 0
}

// maxBytes bounds the encoded length; max counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// absent accepts only a field the client did not send (nil pointer).
func absent(fl validator.FieldLevel) bool {
	f := fl.Field()
	return !f.IsValid() || (f.Kind() == reflect.Ptr && f.IsNil())
}

type normalizer interface {
	Normalize()
}

// BindJSON decodes the body into out, lets out normalize itself (trim,
// lower-case) and then runs the binding rules, so rules see clean input.
// On failure it writes the 400 and returns false.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	RegisterValidators()

	if ctx.Request.Body == nil {
		RespondValidation(ctx, validationFailed, []FieldError{emptyBodyError})
		return false
	}

	if err := json.NewDecoder(ctx.Request.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			RespondValidation(ctx, validationFailed, []FieldError{emptyBodyError})
			return false
		}

		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RespondError(ctx, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}

		RespondValidation(ctx, validationFailed, parseBindError(err, out))
		return false
	}

	if n, ok := out.(normalizer); ok {
		n.Normalize()
	}

	if err := binding.Validator.ValidateStruct(out); err != nil {
		RespondValidation(ctx, validationFailed, parseBindError(err, out))
		return false
	}

	return true
}

var emptyBodyError = FieldError{Field: "body", Rule: "required", Message: "Request body is required"}

func parseBindError(err error, out interface{}) []FieldError {
	rootType := baseStructType(out)

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			field := jsonPathFromValidatorError(rootType, fieldError)
			rule := fieldError.Tag()
			param := fieldError.Param()

			fields = append(fields, FieldError{
				Field:   field,
				Rule:    rule,
				Param:   param,
				Message: validationMessage(field, rule, param),
			})
		}
		return fields
	}

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) || errors.Is(err, io.ErrUnexpectedEOF) {
		return []FieldError{{Field: "body", Rule: "json", Message: "Request body must be valid JSON"}}
	}

	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		field := jsonPathFromDotPath(rootType, unmatchedTypeError.Field)

		if field == "" {
			field = strings.TrimSpace(unmatchedTypeError.Field)
		}

		return []FieldError{{
			Field:   field,
			Rule:    "type",
			Message: fmt.Sprintf("%s must be of type %s", displayName(field), unmatchedTypeError.Type.String()),
		}}
	}

	return []FieldError{{Field: "body", Rule: "invalid", Message: "Request body could not be read"}}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

func jsonPathFromValidatorError(rootType reflect.Type, fieldError validator.FieldError) string {
	// Namespace format is usually "<StructName>.<Field>[.<NestedField>...]".
	namespace := fieldError.StructNamespace()
	if namespace == "" {
		namespace = fieldError.Namespace()
	}

	if namespace == "" {
		return fieldError.Field()
	}

	parts := strings.Split(namespace, ".")
	if len(parts) == 0 {
		return fieldError.Field()
	}

	if rootType != nil && rootType.Name() != "" && parts[0] == rootType.Name() {
		parts = parts[1:]
	}

	path := mapStructPathToJSONPath(rootType, parts)
	if path != "" {
		return path
	}

	return fieldError.Field()
}

func jsonPathFromDotPath(rootType reflect.Type, dotPath string) string {
	dotPath = strings.TrimSpace(dotPath)
	if dotPath == "" {
		return ""
	}

	return mapStructPathToJSONPath(rootType, strings.Split(dotPath, "."))
}

func mapStructPathToJSONPath(rootType reflect.Type, parts []string) string {
	if len(parts) == 0 {
		return ""
	}

	current := rootType
	out := make([]string, 0, len(parts))

	for _, rawPart := range parts {
		if rawPart == "" {
			continue
		}

		fieldName, indexSuffix := splitFieldIndex(rawPart)
		jsonName := fieldName

		nextType := reflect.Type(nil)
		if current != nil {
			for current.Kind() == reflect.Pointer {
				current = current.Elem()
			}

			if current.Kind() == reflect.Struct {
				if sf, ok := current.FieldByName(fieldName); ok {
					jsonName = jsonNameFromStructField(sf)
					nextType = sf.Type
				}
			}
		}

		out = append(out, jsonName+indexSuffix)

		if nextType != nil {
			current = unwindCollection(nextType)
		} else {
			current = nil
		}
	}

	return strings.Join(out, ".")
}

func splitFieldIndex(part string) (string, string) {
	idx := strings.Index(part, "[")
	if idx == -1 {
		return part, ""
	}

	return part[:idx], part[idx:]
}

func jsonNameFromStructField(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" {
		return sf.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return sf.Name
	}

	return name
}

func unwindCollection(t reflect.Type) reflect.Type {
	for t != nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return t
		}
	}

	return nil
}

func displayName(field string) string {
	if field == "" {
		return "Value"
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

func validationMessage(field, rule, param string) string {
	name := displayName(field)

	switch rule {
	case "required":
		return name + " is required"
	case "email":
		return "Please provide a valid email"
	case "hasdigit":
		return name + " must contain at least one number"
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes long", name, param)
	case "immutable":
		return name + " cannot be changed"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", name, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", name, param)
	case "oneof":
		return fmt.Sprintf("Invalid %s. Must be one of %s", field, strings.ReplaceAll(param, " ", ", "))
	default:
		if param != "" {
			return fmt.Sprintf("%s failed %s validation (%s)", name, rule, param)
		}
		return name + " failed " + rule + " validation"
	}
}
