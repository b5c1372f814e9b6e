package normalize

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sub-object shapes checked by the validator. Pointer fields are nil when the
// key is absent or had the wrong type; the latter is already reported.
type subjectInput struct {
	Age *float64 `json:"age" validate:"required,min=0,max=120"`
	Sex *string  `json:"sex" validate:"required,oneof=M F"`
}

type anthroInput struct {
	ProtocolCode *string            `json:"protocol_code" validate:"required,min=1"`
	SkinfoldsMM  map[string]float64 `json:"skinfolds_mm" validate:"required,dive,gte=0"`
	MassKG       *float64           `json:"mass_kg" validate:"required,gt=0"`
	HeightM      *float64           `json:"height_m" validate:"omitempty,gt=0"`
	HeightCM     *float64           `json:"height_cm" validate:"omitempty,gt=0"`
}

type heartRateInput struct {
	Mode *string `json:"mode" validate:"required,oneof=prediction measurement"`
}

type rirInput struct {
	Reps *int `json:"reps" validate:"required,min=1,max=20"`
	RIR  *int `json:"rir" validate:"required,min=5,max=10"`
}

type readinessInput struct {
	Exercise *int `json:"exercise" validate:"required,min=1,max=5"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates in and reports each violation under section. Fields that
// already failed their type check are not reported twice.
func (c *collector) check(section string, in interface{}) {
	var verrs validator.ValidationErrors
	if !errors.As(validate.Struct(in), &verrs) {
		return
	}
	for _, fe := range verrs {
		field := section + "." + fieldPath(fe.Namespace())
		if c.reported[field] {
			continue
		}
		c.fail(field, "%s", message(fe))
	}
}

// fieldPath turns "rirInput.reps" into "reps" and
// "anthroInput.skinfolds_mm[triceps]" into "skinfolds_mm.triceps".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	}
	namespace = strings.ReplaceAll(namespace, "[", ".")
	return strings.ReplaceAll(namespace, "]", "")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return "must not be empty"
		}
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		if fe.Param() == "0" {
			return "must be positive"
		}
		return "must be greater than " + fe.Param()
	case "gte":
		if fe.Param() == "0" {
			return "must not be negative"
		}
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	default:
		return "failed " + fe.Tag() + " check"
	}
}
