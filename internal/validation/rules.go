package validation

import (
	"cmp"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldPlaceholder is replaced by the field name in rule messages.
const FieldPlaceholder = "{field}"

// DefaultRequiresValueMessage is the message template used by RequiresValue.
const DefaultRequiresValueMessage = "The {field} field must have a non-default value"

// Rule is a single check over a field value of type V together with the
// message reported when it fails.
type Rule[V any] struct {
	Message string
	Check   func(V) bool
}

func (r Rule[V]) format(field string) string {
	return strings.ReplaceAll(r.Message, FieldPlaceholder, field)
}

// zeroer is implemented by values with their own notion of "unset",
// e.g. time.Time.
type zeroer interface{ IsZero() bool }

// RequiresValue fails when the value equals the zero value of V (empty
// string, 0, zero time, uuid.Nil, undefined enum).
func RequiresValue[V comparable]() Rule[V] {
	return Rule[V]{
		Message: DefaultRequiresValueMessage,
		Check: func(v V) bool {
			if z, ok := any(v).(zeroer); ok {
				return !z.IsZero()
			}
			var zero V
			return v != zero
		},
	}
}

// Matches fails when the string does not match re.
func Matches(re *regexp.Regexp, msg string) Rule[string] {
	return Rule[string]{Message: msg, Check: re.MatchString}
}

// ExactLength fails unless the string has exactly n characters.
func ExactLength(n int, msg string) Rule[string] {
	return Rule[string]{
		Message: msg,
		Check:   func(s string) bool { return utf8.RuneCountInString(s) == n },
	}
}

// OneOf fails when the value is not one of members.
func OneOf[V comparable](msg string, members ...V) Rule[V] {
	set := make(map[V]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return Rule[V]{
		Message: msg,
		Check: func(v V) bool {
			_, ok := set[v]
			return ok
		},
	}
}

// Between fails when the value lies outside [lo, hi].
func Between[V cmp.Ordered](lo, hi V, msg string) Rule[V] {
	return Rule[V]{
		Message: msg,
		Check:   func(v V) bool { return v >= lo && v <= hi },
	}
}
