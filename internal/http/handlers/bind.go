package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		RespondBadRequest(ctx, "Invalid request body", parseBindError(err, out, "json"))

		return false
	}

	return true
}

// BindForm binds multipart/urlencoded form fields (tasks and submissions
// arrive as multipart with a file part alongside).
func BindForm(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBind(out)

	if err != nil {
		RespondBadRequest(ctx, "Invalid form data", parseBindError(err, out, "form"))

		return false
	}

	return true
}

func parseBindError(err error, out interface{}, tagName string) interface{} {
	rootType := baseStructType(out)

	// validator errors (struct bind tags)

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			field := wireFieldName(rootType, fieldError.Field(), tagName)
			rule := fieldError.Tag()
			param := fieldError.Param()

			fields = append(fields, FieldError{
				Field:   field,
				Rule:    rule,
				Param:   param,
				Message: validationMessage(rule, param),
			})
		}
		return gin.H{"fields": fields}
	}

	// in the event of bad json

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return gin.H{
			"json": "invalid_json_syntax",
		}
	}

	// in the event of a type mismatch

	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		field := wireFieldName(rootType, unmatchedTypeError.Field, tagName)

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{
				{
					Field:   field,
					Rule:    "type",
					Message: fmt.Sprintf("must be of type %s", unmatchedTypeError.Type.String()),
				},
			},
		}
	}

	// final fallback if the error could not be deciphered
	return gin.H{"reason": err.Error()}
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

// wireFieldName maps a Go struct field name to the name clients actually
// send, via the json or form tag on the request struct.
func wireFieldName(rootType reflect.Type, goName, tagName string) string {
	goName = strings.TrimSpace(goName)

	if rootType == nil || goName == "" {
		return goName
	}

	sf, ok := rootType.FieldByName(goName)

	if !ok {
		return goName
	}

	tag := sf.Tag.Get(tagName)
	if tag == "" {
		return goName
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return goName
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "gt":
		return "must be greater than " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
