package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// envSetter converts a raw variable into a field of one kind.
type envSetter func(field reflect.Value, raw string) error

var envSetters = map[reflect.Kind]envSetter{
	reflect.String: func(field reflect.Value, raw string) error {
		field.SetString(raw)
		return nil
	},
	reflect.Int: func(field reflect.Value, raw string) error {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("want a whole number: %w", err)
		}
		field.SetInt(int64(n))
		return nil
	},
	reflect.Bool: func(field reflect.Value, raw string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("want true or false: %w", err)
		}
		field.SetBool(b)
		return nil
	},
	reflect.Float64: func(field reflect.Value, raw string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("want a number: %w", err)
		}
		field.SetFloat(f)
		return nil
	},
	reflect.Slice: func(field reflect.Value, raw string) error {
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("only string lists can come from the environment")
		}
		field.Set(reflect.ValueOf(splitList(raw)))
		return nil
	},
}

// splitList reads "a, b,,c" as [a b c].
func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// applyEnv overrides every field tagged `env` whose variable is set and
// returns the variable names it applied, in declaration order.
func applyEnv(cfg *Config) ([]string, error) {
	var applied []string
	err := walkEnvFields(reflect.ValueOf(cfg).Elem(), func(name string, field reflect.Value) error {
		raw, ok := os.LookupEnv(name)
		if !ok {
			return nil
		}
		set, supported := envSetters[field.Kind()]
		if !supported {
			return fmt.Errorf("%s: unsupported field kind %s", name, field.Kind())
		}
		if err := set(field, raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		applied = append(applied, name)
		return nil
	})
	return applied, err
}

// walkEnvFields calls visit for each tagged field below v, descending into
// nested sections.
func walkEnvFields(v reflect.Value, visit func(name string, field reflect.Value) error) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() == reflect.Struct {
			if err := walkEnvFields(field, visit); err != nil {
				return err
			}
			continue
		}
		name := t.Field(i).Tag.Get("env")
		if name == "" || !field.CanSet() {
			continue
		}
		if err := visit(name, field); err != nil {
			return err
		}
	}
	return nil
}
