package chart

import (
	stderrors "errors"
	"sort"

	"github.com/matzehuels/sseqchart/pkg/errors"
)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fieldError attaches the offending field name to err.
func fieldError(field string, err error) error {
	if e, ok := err.(*errors.Error); ok {
		if e.Field == "" {
			e.Field = field
		}
		return e
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInvalidInput
	}
	return errors.Wrap(code, err, "invalid value").WithField(field)
}

func errUnknownField(what string) error {
	return errors.New(errors.ErrCodeInvalidInput, "unknown %s field", what)
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func joinErrors(errs []error) error {
	return stderrors.Join(errs...)
}
