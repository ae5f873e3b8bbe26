package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("cfg"), ",", 2)[0]
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks field constraints and the cross references of the seed
// design: circuit names are unique, every subcircuit names a circuit, and
// initial memory contents fit their cells.
func (m *Model) Validate() error {
	var msgs []string
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
	}

	names := make(map[string]struct{}, len(m.Design.Circuits))
	for _, c := range m.Design.Circuits {
		if _, dup := names[c.Name]; dup {
			msgs = append(msgs, fmt.Sprintf("circuit %q is defined more than once", c.Name))
		}
		names[c.Name] = struct{}{}
	}
	for _, c := range m.Design.Circuits {
		for i, x := range c.Components {
			if x.AddrBits >= 0 && x.AddrBits <= 24 && len(x.Contents) > 1<<x.AddrBits {
				msgs = append(msgs, fmt.Sprintf("circuit %q component %d: %d contents values exceed %d cells", c.Name, i, len(x.Contents), 1<<x.AddrBits))
			}
			if x.Subcircuit == "" {
				continue
			}
			if _, ok := names[x.Subcircuit]; !ok {
				msgs = append(msgs, fmt.Sprintf("circuit %q component %d: unknown subcircuit %q", c.Name, i, x.Subcircuit))
			}
		}
	}
	if err := m.Design.Hierarchy().DetectCycles(); err != nil {
		msgs = append(msgs, fmt.Sprintf("circuit cannot contain itself: %v", err))
	}

	if len(msgs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Model.")
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %v", field, fe.Value())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}
