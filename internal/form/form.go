// Package form validates user input field by field. Validation problems are
// values held by the form, never returned as errors.
package form

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Translator renders message keys. *i18n.Translator satisfies it.
type Translator interface {
	T(key string, params map[string]any) string
}

// Rule checks one value. Message overrides the translated default when set.
type Rule struct {
	Kind    string
	Message string

	check  func(value string) bool
	key    string
	params map[string]any
}

// Required rejects blank values.
func Required(message ...string) Rule {
	return Rule{
		Kind:    "required",
		Message: first(message),
		key:     "form.required",
		check:   func(v string) bool { return strings.TrimSpace(v) != "" },
	}
}

// Email accepts a bare address. Empty values pass; combine with Required.
func Email(message ...string) Rule {
	return Rule{
		Kind:    "email",
		Message: first(message),
		key:     "form.email",
		check: func(v string) bool {
			if v == "" {
				return true
			}
			addr, err := mail.ParseAddress(v)
			return err == nil && addr.Address == v && strings.Contains(v, ".")
		},
	}
}

// MinLength requires at least n characters. Empty values pass.
func MinLength(n int, message ...string) Rule {
	return Rule{
		Kind:    "min_length",
		Message: first(message),
		key:     "form.min_length",
		params:  map[string]any{"min": n},
		check:   func(v string) bool { return v == "" || utf8.RuneCountInString(v) >= n },
	}
}

// MaxLength allows at most n characters.
func MaxLength(n int, message ...string) Rule {
	return Rule{
		Kind:    "max_length",
		Message: first(message),
		key:     "form.max_length",
		params:  map[string]any{"max": n},
		check:   func(v string) bool { return utf8.RuneCountInString(v) <= n },
	}
}

// Pattern requires a regular expression match. Empty values pass.
func Pattern(re *regexp.Regexp, message ...string) Rule {
	return Rule{
		Kind:    "pattern",
		Message: first(message),
		key:     "form.pattern",
		check:   func(v string) bool { return v == "" || re.MatchString(v) },
	}
}

// Custom runs an arbitrary predicate.
func Custom(fn func(value string) bool, message ...string) Rule {
	return Rule{
		Kind:    "custom",
		Message: first(message),
		key:     "form.invalid",
		check:   fn,
	}
}

// Number accepts values parsing as a float. Empty values pass.
func Number(message ...string) Rule {
	return Custom(func(v string) bool {
		if v == "" {
			return true
		}
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	}, message...)
}

func first(messages []string) string {
	if len(messages) > 0 {
		return messages[0]
	}
	return ""
}

// Field is one named input.
type Field struct {
	Name   string
	Label  string
	Rules  []Rule
	Secret bool // Input must not be echoed, e.g. passwords
}

type fieldState struct {
	value   string
	touched bool
	err     string
}

// Form holds ordered fields and their validation state.
type Form struct {
	fields []Field
	state  map[string]*fieldState
	tr     Translator
}

// New creates a form. tr may be nil, in which case message keys are shown with
// placeholders filled in.
func New(tr Translator, fields ...Field) *Form {
	f := &Form{
		fields: fields,
		state:  make(map[string]*fieldState, len(fields)),
		tr:     tr,
	}
	for _, field := range fields {
		f.state[field.Name] = &fieldState{}
	}
	f.validateAll()
	return f
}

// Fields returns the fields in declaration order.
func (f *Form) Fields() []Field {
	return f.fields
}

// SetValue stores a value, marks the field touched and re-validates it.
// Unknown names are ignored.
func (f *Form) SetValue(name, value string) {
	st, ok := f.state[name]
	if !ok {
		return
	}
	st.value = value
	st.touched = true
	f.validate(name)
}

// Value returns a field value.
func (f *Form) Value(name string) string {
	if st, ok := f.state[name]; ok {
		return st.value
	}
	return ""
}

// Touch marks a field as visited without changing it.
func (f *Form) Touch(name string) {
	if st, ok := f.state[name]; ok {
		st.touched = true
	}
}

// Submit touches every field and reports whether the form is valid.
func (f *Form) Submit() bool {
	for _, st := range f.state {
		st.touched = true
	}
	f.validateAll()
	return f.IsValid()
}

// IsValid covers all fields, touched or not.
func (f *Form) IsValid() bool {
	for _, st := range f.state {
		if st.err != "" {
			return false
		}
	}
	return true
}

// Errors returns the first failing message of each touched field.
func (f *Form) Errors() map[string]string {
	errs := make(map[string]string)
	for name, st := range f.state {
		if st.touched && st.err != "" {
			errs[name] = st.err
		}
	}
	return errs
}

// Error returns the visible message of one field.
func (f *Form) Error(name string) string {
	if st, ok := f.state[name]; ok && st.touched {
		return st.err
	}
	return ""
}

// Values returns all field values.
func (f *Form) Values() map[string]string {
	values := make(map[string]string, len(f.state))
	for name, st := range f.state {
		values[name] = st.value
	}
	return values
}

// Reset clears values and touched flags.
func (f *Form) Reset() {
	for _, st := range f.state {
		*st = fieldState{}
	}
	f.validateAll()
}

func (f *Form) validateAll() {
	for _, field := range f.fields {
		f.validate(field.Name)
	}
}

func (f *Form) validate(name string) {
	st := f.state[name]
	st.err = ""
	for _, field := range f.fields {
		if field.Name != name {
			continue
		}
		for _, rule := range field.Rules {
			if rule.check(st.value) {
				continue
			}
			st.err = f.message(field, rule)
			return
		}
	}
}

func (f *Form) message(field Field, rule Rule) string {
	if rule.Message != "" {
		return rule.Message
	}

	label := field.Label
	if label == "" {
		label = field.Name
	}
	params := map[string]any{"field": label}
	for k, v := range rule.params {
		params[k] = v
	}

	if f.tr != nil {
		return f.tr.T(rule.key, params)
	}
	return rule.key
}
