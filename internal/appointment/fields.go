package appointment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

var (
	identifierPattern = regexp.MustCompile(`^\d{10}$`)
	phonePattern      = regexp.MustCompile(`^\d{10}$`)
	namePattern       = regexp.MustCompile(`^[a-záéíóúñüA-ZÁÉÍÓÚÑÜ\s]+$`)
)

// newFieldValidator registers the record format rules:
//
//	identifier  exactly 10 digits
//	phone10     exactly 10 digits
//	personname  letters (accented included) and spaces
//	notfuture   a date no later than today
func newFieldValidator(clock schedule.Clock) *validator.Validate {
	v := validator.New()

	mustRegister(v, "identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "personname", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.TrimSpace(s) != "" && namePattern.MatchString(s)
	})
	mustRegister(v, "notfuture", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		return !schedule.DateOf(t).After(clock.Today())
	})

	return v
}

// mustRegister panics on a bad registration; the tag set is fixed at build time.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// checkFields runs struct validation and reports the first failing field.
func (s *Service) checkFields(in any) *Rejection {
	err := s.fields.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return reject(KindInvalidFieldFormat, "%s %s", strings.ToLower(fe.Field()), describeTag(fe))
	}
	return reject(KindInvalidFieldFormat, "%v", err)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "identifier", "phone10":
		return "must be exactly 10 digits"
	case "personname":
		return "must contain only letters and spaces"
	case "notfuture":
		return "cannot be in the future"
	case "email":
		return "must be a valid email"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	default:
		return "is invalid"
	}
}
