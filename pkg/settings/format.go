package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Format is a config file format.
type Format string

// Supported config file formats, in the order files are searched for.
const (
	FormatINI  Format = "ini"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// Formats lists the extensions probed in each config directory.
var Formats = []Format{FormatINI, FormatYAML, FormatJSON, FormatTOML}

// iniCommonSection holds top-level keys in INI files.
const iniCommonSection = "_common_"

// FormatOf infers a format from a file extension.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ini":
		return FormatINI, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("config file type %q not supported: only .ini, .json, .toml, and .yaml files are supported", ext)
	}
}

// ParseConfig decodes a config document into a map.
//
// INI keys in the [_common_] section (or before any section) become
// top-level keys; every other section becomes a nested map.
func ParseConfig(data []byte, format Format) (map[string]any, error) {
	out := map[string]any{}
	switch format {
	case FormatINI:
		cfg, err := ini.Load(data)
		if err != nil {
			return nil, err
		}
		for _, sec := range cfg.Sections() {
			kv := sec.KeysHash()
			if sec.Name() == ini.DefaultSection || sec.Name() == iniCommonSection {
				for k, v := range kv {
					out[k] = v
				}
				continue
			}
			nested := make(map[string]any, len(kv))
			for k, v := range kv {
				nested[k] = v
			}
			out[sec.Name()] = nested
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		if out == nil {
			out = map[string]any{}
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	return out, nil
}

// EncodeConfig encodes values in the given format.
func EncodeConfig(values map[string]any, format Format) ([]byte, error) {
	switch format {
	case FormatINI:
		return encodeINI(values)
	case FormatJSON:
		return json.MarshalIndent(values, "", "    ")
	case FormatTOML:
		return toml.Marshal(values)
	case FormatYAML:
		return yaml.Marshal(values)
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
}

func encodeINI(values map[string]any) ([]byte, error) {
	cfg := ini.Empty()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if nested, ok := values[k].(map[string]any); ok {
			sec := cfg.Section(k)
			for nk, nv := range nested {
				sec.Key(nk).SetValue(iniValue(nv))
			}
			continue
		}
		cfg.Section(iniCommonSection).Key(k).SetValue(iniValue(values[k]))
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// iniValue flattens lists to comma-separated strings, which the settings
// decoder splits back into slices.
func iniValue(v any) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

// ParseConfigFile reads and decodes a config file. An empty format is
// inferred from the file extension.
func ParseConfigFile(path string, format Format) (map[string]any, error) {
	if format == "" {
		f, err := FormatOf(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		format = f
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out, err := ParseConfig(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s as %s: %w", path, format, err)
	}
	return out, nil
}

// WriteConfigFile writes values to path, creating parent directories.
// Files may hold secrets, so they are created user-readable only.
func WriteConfigFile(path string, values map[string]any, format Format) error {
	if format == "" {
		f, err := FormatOf(path)
		if err != nil {
			return err
		}
		format = f
	}
	data, err := EncodeConfig(values, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// CreateOrUpdateConfigFile merges values into an existing file, or creates it.
func CreateOrUpdateConfigFile(path string, values map[string]any, format Format) error {
	merged := map[string]any{}
	if _, err := os.Stat(path); err == nil {
		existing, err := ParseConfigFile(path, format)
		if err != nil {
			return err
		}
		merged = existing
		logger.Debugf("Updating existing config file %s", path)
	} else {
		logger.Debugf("Creating new config file %s", path)
	}
	for k, v := range values {
		merged[k] = v
	}
	return WriteConfigFile(path, merged, format)
}
