// Package validation implements a small rule registry used to check command
// objects before they reach the store.
//
// Rules are declared once per command type as an ordered list of fields, each
// with a typed accessor and its rules:
//
//	var setFlightRules = validation.New[SetFlightCommand]()
//	validation.Field(setFlightRules, "flightNumber",
//	    func(c *SetFlightCommand) string { return c.FlightNumber },
//	    validation.RequiresValue[string](),
//	    validation.Matches(flightNumberRE, "Value must be 1 to 7 alphanumeric characters"))
//
// Validate runs every rule of every field and reports all failures as Errors.
// Validation is structural only and never performs I/O.
package validation

import (
	"strings"
)

// Violation is one failed rule for one field.
type Violation struct {
	Field   string `json:"field"   example:"flightNumber"`
	Message string `json:"message" example:"Value must be 1 to 7 alphanumeric characters"`
}

// Errors is the list of violations returned by Registry.Validate.
type Errors []Violation

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, v := range e {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return strings.Join(parts, "; ")
}

// Messages returns the violation messages in field order.
func (e Errors) Messages() []string {
	out := make([]string, 0, len(e))
	for _, v := range e {
		out = append(out, v.Message)
	}
	return out
}

// fieldRules evaluates all rules of one registered field against a command.
type fieldRules[T any] struct {
	name  string
	check func(*T) []Violation
}

// Registry holds the ordered field rules for a command type T.
// A Registry is built once at package init and is safe for concurrent use
// afterwards.
type Registry[T any] struct {
	fields []fieldRules[T]
}

// New returns an empty registry for T.
func New[T any]() *Registry[T] { return &Registry[T]{} }

// Field registers rules for the field name, read through get. Rules run in
// the order given. It returns the registry so declarations can be chained in
// a var block.
func Field[T, V any](r *Registry[T], name string, get func(*T) V, rules ...Rule[V]) *Registry[T] {
	return FieldIf(r, name, nil, get, rules...)
}

// FieldIf is Field with a guard: the rules of name only run when when(cmd)
// reports true. A nil guard always applies.
func FieldIf[T, V any](r *Registry[T], name string, when func(*T) bool, get func(*T) V, rules ...Rule[V]) *Registry[T] {
	r.fields = append(r.fields, fieldRules[T]{
		name: name,
		check: func(cmd *T) []Violation {
			if when != nil && !when(cmd) {
				return nil
			}
			v := get(cmd)
			var out []Violation
			for _, rule := range rules {
				if !rule.Check(v) {
					out = append(out, Violation{Field: name, Message: rule.format(name)})
				}
			}
			return out
		},
	})
	return r
}

// Validate evaluates every registered rule against cmd. It returns nil when
// all rules pass, otherwise an Errors value listing every violation.
func (r *Registry[T]) Validate(cmd *T) error {
	var errs Errors
	for _, f := range r.fields {
		errs = append(errs, f.check(cmd)...)
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
