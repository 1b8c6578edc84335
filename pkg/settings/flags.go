package settings

import (
	"reflect"

	"github.com/spf13/pflag"

	"github.com/uoft-netops/uoft-tools/pkg/util"
)

// RegisterFlags adds a --kebab-case flag to fs for every field of target.
// Flags already defined on fs are left alone.
func RegisterFlags(fs *pflag.FlagSet, target any) error {
	fields, err := Fields(target)
	if err != nil {
		return err
	}
	for _, f := range fields {
		name := util.KebabCase(f.Key)
		if fs.Lookup(name) != nil {
			continue
		}
		switch f.Kind {
		case reflect.Slice:
			fs.StringSlice(name, nil, f.Help())
		case reflect.Bool:
			fs.Bool(name, false, f.Help())
		case reflect.Int, reflect.Int32, reflect.Int64:
			fs.Int(name, 0, f.Help())
		default:
			fs.String(name, "", f.Help())
		}
	}
	return nil
}

// FlagOverrides returns the values of the settings flags the user set.
func FlagOverrides(fs *pflag.FlagSet, target any) (map[string]any, error) {
	fields, err := Fields(target)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	for _, f := range fields {
		name := util.KebabCase(f.Key)
		fl := fs.Lookup(name)
		if fl == nil || !fl.Changed {
			continue
		}
		switch f.Kind {
		case reflect.Slice:
			v, err := fs.GetStringSlice(name)
			if err != nil {
				return nil, err
			}
			out[f.Key] = v
		case reflect.Bool:
			v, err := fs.GetBool(name)
			if err != nil {
				return nil, err
			}
			out[f.Key] = v
		case reflect.Int, reflect.Int32, reflect.Int64:
			v, err := fs.GetInt(name)
			if err != nil {
				return nil, err
			}
			out[f.Key] = v
		default:
			out[f.Key] = fl.Value.String()
		}
	}
	return out, nil
}
