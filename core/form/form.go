// Package form parses submitted form values against a declarative schema.
//
// Parsing runs in two phases: every field is coerced and checked by its synchronous rules
// (errors are collected for all fields), then, only if no field failed, the schema's
// refinements run against the typed value. Refinements usually hit the store
// (e.g. name uniqueness) and may attach more field errors.
package form

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
)

type Kind int

const (
	String Kind = iota
	Email       // lower-cased string with the "email" rule
	Int
	IntList // repeated field, deduplicated
	Enum
	Date     // 2006-01-02
	DateTime // 2006-01-02T15:04
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"

	invalidIntText     = "Debe ser un número"
	invalidIntListText = "Debe ser una lista de números"
	invalidEnumText    = "Opción inválida"
	invalidDateText    = "Fecha inválida"
)

type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Hidden   bool     // never echoed back in replies (passwords)
	Raw      bool     // value kept verbatim, without trimming (passwords)
	Enum     []string // allowed values for Enum fields
	Rules    string   // validator tags run on the coerced value, comma separated
}

// Refinement is an asynchronous rule run once all synchronous rules passed.
// The error return is reserved for infrastructure failures.
type Refinement[T any] func(ctx context.Context, value T) (Errors, error)

type Schema[T any] struct {
	Fields []Field
	Build  func(v Values) T
	// Check holds synchronous rules spanning several fields; they run on the built value.
	Check  []func(value T) Errors
	Refine []Refinement[T]
}

func (s Schema[T]) hiddenFields() []string {
	var hidden []string
	for _, f := range s.Fields {
		if f.Hidden {
			hidden = append(hidden, f.Name)
		}
	}
	return hidden
}

// Engine holds the validator used for field rules and the translator for their messages.
type Engine struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewEngine(validate *validator.Validate, translator ut.Translator) *Engine {
	return &Engine{validate: validate, translator: translator}
}

// Parse coerces and validates data against schema.
func Parse[T any](ctx context.Context, e *Engine, schema Schema[T], data url.Values) (*Submission[T], error) {
	sub := &Submission[T]{
		Status:  StatusSuccess,
		Errors:  make(Errors),
		payload: data,
		hidden:  schema.hiddenFields(),
	}
	values := Values{m: make(map[string]interface{}, len(schema.Fields))}

	for _, fld := range schema.Fields {
		val, msgs := e.parseField(fld, data[fld.Name])
		if len(msgs) > 0 {
			sub.Errors[fld.Name] = msgs
			continue
		}
		if val != nil {
			values.m[fld.Name] = val
		}
	}
	if !sub.Errors.Empty() {
		sub.Status = StatusError
		return sub, nil
	}

	if schema.Build != nil {
		sub.Value = schema.Build(values)
	}

	for _, check := range schema.Check {
		sub.Errors.Merge(check(sub.Value))
	}
	if !sub.Errors.Empty() {
		sub.Status = StatusError
		return sub, nil
	}

	for _, refine := range schema.Refine {
		errs, err := refine(ctx, sub.Value)
		if err != nil {
			return nil, errors.Wrap(err, "refining form")
		}
		sub.Errors.Merge(errs)
	}
	if !sub.Errors.Empty() {
		sub.Status = StatusError
	}
	return sub, nil
}

// parseField returns the coerced value (nil when empty and optional) or the field's errors.
func (e *Engine) parseField(fld Field, raw []string) (interface{}, []string) {
	if fld.Kind == IntList {
		return e.parseIntList(fld, raw)
	}

	var s string
	switch {
	case len(raw) == 0:
	case fld.Raw:
		s = raw[0]
	default:
		s = core.CleanString(raw[0], fld.Kind == Email)
	}
	if s == "" {
		if fld.Required {
			return nil, []string{core.RequiredText}
		}
		return nil, nil
	}

	var val interface{}
	switch fld.Kind {
	case String, Email:
		val = s
	case Int:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, []string{invalidIntText}
		}
		val = n
	case Enum:
		if !contains(fld.Enum, s) {
			return nil, []string{invalidEnumText}
		}
		val = s
	case Date, DateTime:
		layout := DateLayout
		if fld.Kind == DateTime {
			layout = DateTimeLayout
		}
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			return nil, []string{invalidDateText}
		}
		val = t
	}

	rules := fld.Rules
	if fld.Kind == Email {
		rules = joinRules("email", rules)
	}
	return val, e.check(val, rules)
}

func (e *Engine) parseIntList(fld Field, raw []string) (interface{}, []string) {
	if raw == nil && !fld.Required {
		return nil, nil
	}
	ids := make([]int, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		n, err := strconv.Atoi(r)
		if err != nil {
			return nil, []string{invalidIntListText}
		}
		ids = append(ids, n)
	}
	if len(ids) == 0 {
		if fld.Required {
			return nil, []string{core.RequiredText}
		}
		return []int{}, nil
	}
	return core.UniqueInts(ids), nil
}

// check runs every rule on its own so that all violations of a field are reported.
func (e *Engine) check(val interface{}, rules string) []string {
	if rules == "" {
		return nil
	}
	var msgs []string
	for _, rule := range strings.Split(rules, ",") {
		err := e.validate.Var(val, rule)
		if err == nil {
			continue
		}
		vErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			msgs = append(msgs, err.Error())
			continue
		}
		for _, fe := range vErrs {
			msgs = append(msgs, fe.Translate(e.translator))
		}
	}
	return msgs
}

func joinRules(rules ...string) string {
	nonEmpty := rules[:0]
	for _, r := range rules {
		if r != "" {
			nonEmpty = append(nonEmpty, r)
		}
	}
	return strings.Join(nonEmpty, ",")
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
