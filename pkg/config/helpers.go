package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/clawstrap/pkg/errors"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Keys lists every settable key in file order.
func Keys() []string {
	t := reflect.TypeOf(Settings{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if key := yamlKey(t.Field(i)); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func yamlKey(field reflect.StructField) string {
	tag := field.Tag.Get("yaml")
	if tag == "" || tag == "-" {
		return ""
	}
	return strings.Split(tag, ",")[0]
}

// field returns the settable Settings field for key.
func (c *Config) field(key string) (reflect.Value, error) {
	v := reflect.ValueOf(&c.Settings).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if yamlKey(t.Field(i)) == key {
			return v.Field(i), nil
		}
	}
	return reflect.Value{}, errors.Detail(errors.ErrUnknownConfigKey, "%s", key)
}

// SetValue sets a configuration value by key. Durations accept Go duration
// syntax ("90s") or a bare number of seconds. The result is validated.
func (c *Config) SetValue(key, value string) error {
	f, err := c.field(key)
	if err != nil {
		return err
	}
	prev := reflect.New(f.Type()).Elem()
	prev.Set(f)

	switch {
	case f.Type() == durationType:
		d, err := parseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s", key, value)
		}
		f.SetInt(int64(d))
	case f.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		f.SetBool(b)
	case f.Kind() == reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		f.SetInt(int64(n))
	default:
		f.SetString(value)
	}

	if err := c.Validate(); err != nil {
		f.Set(prev)
		return err
	}
	return nil
}

func parseDuration(value string) (time.Duration, error) {
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(value)
}

// GetValue returns the value for key as a string.
func (c *Config) GetValue(key string) (string, error) {
	f, err := c.field(key)
	if err != nil {
		return "", err
	}
	return format(f), nil
}

// ToMap returns every setting keyed by its YAML name.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)
	v := reflect.ValueOf(c.Settings)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if key := yamlKey(t.Field(i)); key != "" {
			result[key] = format(v.Field(i))
		}
	}
	return result
}

func format(f reflect.Value) string {
	if f.Type() == durationType {
		return time.Duration(f.Int()).String()
	}
	switch f.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(f.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(f.Int(), 10)
	case reflect.String:
		return f.String()
	default:
		return fmt.Sprintf("%v", f.Interface())
	}
}
