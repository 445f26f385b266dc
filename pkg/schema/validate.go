package schema

import "sort"

// Schema maps state keys to their expected types.
type Schema map[string]Type

// Validate checks data against s and reports every failing key, in key order.
// Keys not named by s are ignored.
func Validate(s Schema, data map[string]any) error {
	if len(s) == 0 {
		return nil
	}

	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		typ := s[key]
		value, exists := data[key]
		if !exists {
			if _, optional := typ.(optionalType); optional {
				continue
			}
			errs = append(errs, &ValidationError{Key: key, Reason: "required"})
			continue
		}
		if err := typ.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: key, Reason: err.Error(), Value: value})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
