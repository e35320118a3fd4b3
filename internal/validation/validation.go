// Package validation evaluates declarative per-route rule lists against
// request fields. All rules run in order, failures are collected and only
// the first one is reported (first-error-wins). A rule check may hit the
// store (existence and uniqueness lookups); a genuine store failure inside
// such a check aborts evaluation and is returned as-is, it is not a
// validation failure.
package validation

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type Source int

const (
	SourceBody Source = iota
	SourceParam
	SourceQuery
	SourceForm
)

// Error is a failed rule. Anything else returned by a check is an
// internal error.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func Failf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// CheckFunc inspects a single extracted field value. vals gives access to
// the other fields of the request for cross-field checks.
type CheckFunc func(ctx context.Context, value string, vals Values) error

type Rule struct {
	Source Source
	Field  string
	Checks []CheckFunc
}

func Body(field string, checks ...CheckFunc) Rule {
	return Rule{Source: SourceBody, Field: field, Checks: checks}
}

func Param(field string, checks ...CheckFunc) Rule {
	return Rule{Source: SourceParam, Field: field, Checks: checks}
}

func Query(field string, checks ...CheckFunc) Rule {
	return Rule{Source: SourceQuery, Field: field, Checks: checks}
}

func Form(field string, checks ...CheckFunc) Rule {
	return Rule{Source: SourceForm, Field: field, Checks: checks}
}

// Values is the typed field-extraction context rules are evaluated against.
type Values struct {
	Body  map[string]string
	Param map[string]string
	Query map[string]string
	Form  map[string]string
}

func (v Values) Get(src Source, field string) string {
	switch src {
	case SourceBody:
		return v.Body[field]
	case SourceParam:
		return v.Param[field]
	case SourceQuery:
		return v.Query[field]
	case SourceForm:
		return v.Form[field]
	}
	return ""
}

// FromEcho builds Values from the request's path params and query string.
// Body fields come from the already-bound request struct and are passed in
// by the handler.
func FromEcho(c echo.Context, body map[string]string) Values {
	params := make(map[string]string, len(c.ParamNames()))
	for i, name := range c.ParamNames() {
		params[name] = c.ParamValues()[i]
	}
	query := make(map[string]string)
	for name, vv := range c.QueryParams() {
		if len(vv) > 0 {
			query[name] = vv[0]
		}
	}
	return Values{Body: body, Param: params, Query: query}
}

// Run evaluates every rule. A non-Error return from a check short-circuits
// the whole run; otherwise the first collected failure is returned after
// all rules have been evaluated.
func Run(ctx context.Context, vals Values, rules []Rule) error {
	var failures []*Error
	for _, r := range rules {
		value := vals.Get(r.Source, r.Field)
		for _, check := range r.Checks {
			err := check(ctx, value, vals)
			if err == nil {
				continue
			}
			var ve *Error
			if !errors.As(err, &ve) {
				return err
			}
			failures = append(failures, ve)
			// remaining checks of this rule are skipped, the rule
			// already failed
			break
		}
	}
	if len(failures) > 0 {
		return failures[0]
	}
	return nil
}

// Required fails on an empty value (after trimming).
func Required(msg string) CheckFunc {
	return func(_ context.Context, value string, _ Values) error {
		if strings.TrimSpace(value) == "" {
			return Failf("%s", msg)
		}
		return nil
	}
}

// MinLength fails when the trimmed value is shorter than n.
func MinLength(n int, msg string) CheckFunc {
	return func(_ context.Context, value string, _ Values) error {
		if len(strings.TrimSpace(value)) < n {
			return Failf("%s", msg)
		}
		return nil
	}
}

// Numeric fails unless the value parses as a number.
func Numeric(msg string) CheckFunc {
	return func(_ context.Context, value string, _ Values) error {
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
			return Failf("%s", msg)
		}
		return nil
	}
}

// IsEmail fails unless the value is a plausible email address.
func IsEmail(msg string) CheckFunc {
	return func(_ context.Context, value string, _ Values) error {
		addr, err := mail.ParseAddress(strings.TrimSpace(value))
		if err != nil || addr.Address != strings.TrimSpace(value) {
			return Failf("%s", msg)
		}
		return nil
	}
}

// EqualsField fails unless the value matches another field from the same
// source (password confirmation).
func EqualsField(src Source, other, msg string) CheckFunc {
	return func(_ context.Context, value string, vals Values) error {
		if strings.TrimSpace(value) != strings.TrimSpace(vals.Get(src, other)) {
			return Failf("%s", msg)
		}
		return nil
	}
}

// Check wraps a custom predicate, typically an asynchronous store lookup.
// The predicate fails the rule by returning *Error (via Failf); any other
// error is treated as an internal failure.
func Check(fn func(ctx context.Context, value string) error) CheckFunc {
	return func(ctx context.Context, value string, _ Values) error {
		return fn(ctx, strings.TrimSpace(value))
	}
}
