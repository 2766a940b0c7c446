package runtime

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// decodeArgs converts build-file arguments onto target using mapstructure.
// It uses yaml tags for field mapping, supports time.Duration and time.Time conversions
// and rejects keys that match no field.
func decodeArgs(m map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			stringToPathsHookFunc(),
		),
		WeaklyTypedInput: true, // Allow type coercion (e.g., int -> float64, "8" -> 8)
		ErrorUnused:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(m); err != nil {
		return fmt.Errorf("failed to decode arguments: %w", err)
	}

	return nil
}

// stringToPathsHookFunc lets a single string stand in for a path collection.
func stringToPathsHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String {
			return data, nil
		}
		if to != reflect.TypeOf(Paths{}) && to != reflect.TypeOf([]string{}) {
			return data, nil
		}
		s := data.(string)
		if s == "" {
			return []string{}, nil
		}
		return []string{s}, nil
	}
}
