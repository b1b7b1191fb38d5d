package form

import (
	"net/url"
	"time"

	"github.com/trezcool/tdm/core"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Errors maps a field name to its ordered error messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Merge(other Errors) {
	for field, msgs := range other {
		e[field] = append(e[field], msgs...)
	}
}

func (e Errors) Empty() bool { return len(e) == 0 }

// FromValidationError converts a core.ValidationError into field errors.
func FromValidationError(vErr *core.ValidationError) Errors {
	errs := make(Errors, len(vErr.Fields))
	for _, fe := range vErr.Fields {
		errs.Add(fe.Field, fe.Error)
	}
	return errs
}

// Values holds the coerced values of a parsed form. Missing optional fields read as zero values.
type Values struct {
	m map[string]interface{}
}

func (v Values) Has(name string) bool {
	_, ok := v.m[name]
	return ok
}

func (v Values) String(name string) string {
	s, _ := v.m[name].(string)
	return s
}

func (v Values) Int(name string) int {
	n, _ := v.m[name].(int)
	return n
}

func (v Values) IntList(name string) []int {
	ids, _ := v.m[name].([]int)
	return ids
}

func (v Values) Time(name string) time.Time {
	t, _ := v.m[name].(time.Time)
	return t
}

// Submission is the outcome of parsing one form.
type Submission[T any] struct {
	Status Status
	Value  T
	Errors Errors

	payload url.Values
	hidden  []string
}

func (s *Submission[T]) OK() bool { return s.Status == StatusSuccess }

// AddError attaches an error found after parsing (e.g. a unique constraint hit on insert).
func (s *Submission[T]) AddError(field, msg string) {
	s.Errors.Add(field, msg)
	s.Status = StatusError
}

// Fail attaches every field of vErr.
func (s *Submission[T]) Fail(vErr *core.ValidationError) {
	for _, fe := range vErr.Fields {
		s.AddError(fe.Field, fe.Error)
	}
	if len(vErr.Fields) == 0 {
		s.AddError("", vErr.Error())
	}
}

// Reply is what gets sent back to the client after a submission.
type Reply struct {
	Status       Status              `json:"status"`
	InitialValue map[string][]string `json:"initialValue,omitempty"`
	Error        Errors              `json:"error,omitempty"`
	Result       interface{}         `json:"result,omitempty"`
}

// Value returns the first echoed value of field, used by templates to refill inputs.
func (r Reply) Value(field string) string {
	if vals := r.InitialValue[field]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Errs returns the errors of field.
func (r Reply) Errs(field string) []string {
	return r.Error[field]
}

type replyOptions struct {
	hide   []string
	errs   Errors
	result interface{}
	keep   bool
}

type ReplyOption func(*replyOptions)

// HideFields scrubs names from the echoed form values, on top of the schema's hidden fields.
func HideFields(names ...string) ReplyOption {
	return func(o *replyOptions) { o.hide = append(o.hide, names...) }
}

// WithFieldError attaches an error to field and turns the reply into a failure.
func WithFieldError(field, msg string) ReplyOption {
	return func(o *replyOptions) { o.errs.Add(field, msg) }
}

func WithResult(result interface{}) ReplyOption {
	return func(o *replyOptions) { o.result = result }
}

// KeepValues echoes the submitted values even on success.
func KeepValues() ReplyOption {
	return func(o *replyOptions) { o.keep = true }
}

func (s *Submission[T]) Reply(opts ...ReplyOption) Reply {
	o := replyOptions{errs: make(Errors)}
	for _, opt := range opts {
		opt(&o)
	}

	errs := make(Errors, len(s.Errors)+len(o.errs))
	errs.Merge(s.Errors)
	errs.Merge(o.errs)

	reply := Reply{Status: StatusSuccess, Result: o.result}
	if !errs.Empty() {
		reply.Status = StatusError
		reply.Error = errs
	}
	if reply.Status == StatusError || o.keep {
		reply.InitialValue = scrub(s.payload, append(s.hidden, o.hide...))
	}
	return reply
}

func scrub(payload url.Values, hidden []string) map[string][]string {
	out := make(map[string][]string, len(payload))
	for k, v := range payload {
		out[k] = append([]string(nil), v...)
	}
	for _, name := range hidden {
		delete(out, name)
	}
	return out
}
