package settings

import (
	"fmt"
	"reflect"
	"strings"
)

// Secret is a string setting that never prints its value. Passwords and API
// tokens use this type so that %v, logs and `settings show` stay masked.
type Secret string

// String masks the secret.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "**********"
}

// Reveal returns the secret value.
func (s Secret) Reveal() string {
	return string(s)
}

var secretType = reflect.TypeOf(Secret(""))

// Field describes one settings key, read from the struct tags of a settings type:
//
//	Password Secret `mapstructure:"password" title:"API Password" desc:"..." settings:"required"`
//
// Recognised `settings` options are required, secret and noprompt. Embedded
// structs tagged `mapstructure:",squash"` contribute their fields.
type Field struct {
	Key         string
	Title       string
	Description string
	Default     string
	HasDefault  bool
	Required    bool
	Secret      bool
	NoPrompt    bool
	Kind        reflect.Kind
}

// Help is the flag/prompt help text for the field.
func (f Field) Help() string {
	switch {
	case f.Title != "" && f.Description != "":
		return f.Title + ": " + f.Description
	case f.Title != "":
		return f.Title
	default:
		return f.Description
	}
}

// Label is the short prompt label for the field.
func (f Field) Label() string {
	if f.Title != "" {
		return f.Title
	}
	return f.Key
}

// Fields returns the settings fields declared by target, a struct or pointer to struct.
func Fields(target any) ([]Field, error) {
	t := reflect.TypeOf(target)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("settings target must be a struct, got %T", target)
	}
	return collectFields(t), nil
}

func collectFields(t reflect.Type) []Field {
	var out []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(sf.Tag.Get("mapstructure"), ",")
		if opts == "squash" && sf.Type.Kind() == reflect.Struct {
			out = append(out, collectFields(sf.Type)...)
			continue
		}
		if name == "" || name == "-" {
			continue
		}

		f := Field{
			Key:         name,
			Title:       sf.Tag.Get("title"),
			Description: sf.Tag.Get("desc"),
			Kind:        sf.Type.Kind(),
			Secret:      sf.Type == secretType,
		}
		f.Default, f.HasDefault = sf.Tag.Lookup("default")
		for _, opt := range strings.Split(sf.Tag.Get("settings"), ",") {
			switch strings.TrimSpace(opt) {
			case "required":
				f.Required = true
			case "secret":
				f.Secret = true
			case "noprompt":
				f.NoPrompt = true
			}
		}
		out = append(out, f)
	}
	return out
}

// Entry is a resolved field value as shown by `settings show`.
type Entry struct {
	Field
	Value string
}

// Describe returns the current value of every field of target, secrets masked.
func Describe(target any) ([]Entry, error) {
	fields, err := Fields(target)
	if err != nil {
		return nil, err
	}
	values := map[string]reflect.Value{}
	collectValues(reflect.Indirect(reflect.ValueOf(target)), values)

	entries := make([]Entry, 0, len(fields))
	for _, f := range fields {
		e := Entry{Field: f}
		if v, ok := values[f.Key]; ok {
			switch {
			case f.Secret && !v.IsZero():
				e.Value = Secret("x").String()
			case v.Kind() == reflect.Slice:
				parts := make([]string, v.Len())
				for i := range parts {
					parts[i] = fmt.Sprint(v.Index(i).Interface())
				}
				e.Value = strings.Join(parts, ",")
			default:
				e.Value = fmt.Sprint(v.Interface())
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func collectValues(v reflect.Value, out map[string]reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(sf.Tag.Get("mapstructure"), ",")
		if opts == "squash" && sf.Type.Kind() == reflect.Struct {
			collectValues(v.Field(i), out)
			continue
		}
		if name != "" && name != "-" {
			out[name] = v.Field(i)
		}
	}
}
