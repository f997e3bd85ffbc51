package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/c2h5oh/datasize"
	"github.com/hashicorp/go-multierror"
	validator "gopkg.in/bluesuncorp/validator.v9"
)

var validations = []struct {
	key string
	val validator.Func
}{
	{"min-time", MinTimeValidation},
	{"min-size", MinSizeValidation},
}

var stringValidations = []struct {
	key string
	val func(string) bool
}{
	{"endpoint", EndpointStringValidation},
	{"postgres-url", URLStringValidation("postgres", "postgresql")},
	{"amqp-url", URLStringValidation("amqp", "amqps")},
}

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.SetTagName("validate")
	for _, val := range validations {
		_ = validate.RegisterValidation(val.key, val.val)
	}
	for _, val := range stringValidations {
		sv := val.val
		_ = validate.RegisterValidation(val.key, func(fl validator.FieldLevel) bool {
			s, ok := fl.Field().Interface().(string)
			return ok && sv(s)
		})
	}
	return validate
}

// Validate проверяет значение по тегам validate.
// Все нарушения собираются в одну ошибку.
func Validate(value interface{}) error {
	err := defaultValidator.Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var result *multierror.Error
	for _, fe := range fieldErrs {
		// значение не выводится: в DSN бывают пароли
		result = multierror.Append(result, fmt.Errorf("%s: failed %q validation", fe.Namespace(), fe.Tag()))
	}
	return result.ErrorOrNil()
}

func MinTimeValidation(fl validator.FieldLevel) bool {
	min, err := time.ParseDuration(fl.Param())
	if err != nil {
		return false
	}
	actual, ok := fl.Field().Interface().(time.Duration)
	return ok && min <= actual
}

func MinSizeValidation(fl validator.FieldLevel) bool {
	var min datasize.ByteSize
	if err := min.UnmarshalText([]byte(fl.Param())); err != nil {
		return false
	}
	actual, ok := fl.Field().Interface().(datasize.ByteSize)
	return ok && min <= actual
}

// EndpointStringValidation проверяет "host:port" или ":port".
func EndpointStringValidation(value string) bool {
	host, port, err := net.SplitHostPort(value)
	return err == nil &&
		(host == "" || govalidator.IsHost(host)) &&
		govalidator.IsPort(port)
}

// URLStringValidation проверяет URL с одной из схем и корректным хостом.
func URLStringValidation(schemes ...string) func(string) bool {
	return func(value string) bool {
		u, err := url.Parse(value)
		if err != nil {
			return false
		}

		schemeOK := false
		for _, s := range schemes {
			if u.Scheme == s {
				schemeOK = true
				break
			}
		}
		if !schemeOK || !govalidator.IsHost(u.Hostname()) {
			return false
		}
		return u.Port() == "" || govalidator.IsPort(u.Port())
	}
}
