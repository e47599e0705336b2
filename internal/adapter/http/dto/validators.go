package dto

import (
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// operatorNameRe matches configured operator names: a letter first, then
// up to 63 letters, digits, dots, dashes or underscores.
var operatorNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.\-]{0,63}$`)

var ledgerValidators = map[string]validator.Func{
	"operator_name": func(fl validator.FieldLevel) bool {
		return operatorNameRe.MatchString(fl.Field().String())
	},
	"printable": func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), func(r rune) bool {
			return !unicode.IsPrint(r) && r != ' '
		}) < 0
	},
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := RegisterValidators(v); err != nil {
			panic(err)
		}
	}
}

// RegisterValidators adds the ledger tags (operator_name, printable) to v.
func RegisterValidators(v *validator.Validate) error {
	for tag, fn := range ledgerValidators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// SanitizeStruct trims surrounding whitespace from the string fields of a
// struct pointer, descending into embedded structs. Nothing is escaped:
// display names are stored as sent.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
		trimStrings(rv.Elem())
	}
}

func trimStrings(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		if f.Kind() == reflect.Ptr {
			if f.IsNil() {
				continue
			}
			f = f.Elem()
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Struct:
			if rv.Type().Field(i).Anonymous {
				trimStrings(f)
			}
		}
	}
}
