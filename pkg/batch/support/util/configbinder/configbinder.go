// Package configbinder decodes loosely typed configuration maps into structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindProperties binds raw (usually a map decoded from YAML) to target using the target's "yaml" tags.
// Weakly typed input is allowed, so "5432" binds to an int and "true" to a bool.
//
// Parameters:
//
//	raw: The value to bind, typically map[string]interface{}.
//	target: A pointer to the struct to fill.
//
// Returns:
//
//	An error naming the target type if binding fails.
func BindProperties(raw interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to struct %s: %w", targetType.Name(), err)
	}
	return nil
}
