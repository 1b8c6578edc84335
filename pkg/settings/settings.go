// Package settings loads per-tool settings for the uoft-tools CLIs.
//
// Values are merged from, highest priority first: explicit overrides (CLI
// flags), UOFT_<APP>_<KEY> environment variables, pass store entries, config
// files and field defaults. String values of the form ref[pass:<name>] or
// ref[bw:<name>] are replaced by the named secret. Missing required fields are
// prompted for when a terminal is attached.
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/uoft-netops/uoft-tools/pkg/util"
)

var logger = util.WithField("component", "settings")

// RawValidator is implemented by settings types that need to inspect the
// merged file and pass store values before decoding, e.g. to reject
// deprecated keys. files lists the readable config files.
type RawValidator interface {
	ValidateRaw(raw map[string]any, files []string) error
}

// Loader loads settings for one tool.
type Loader struct {
	app       string
	overrides map[string]any
	env       func(string) (string, bool)
	stores    []SecretStore
	resolvers map[string]SecretResolver
	prompter  Prompter
	dirs      []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithOverrides sets values that take precedence over every other source.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		for k, v := range values {
			l.overrides[k] = v
		}
	}
}

// WithEnv replaces the environment lookup.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(l *Loader) { l.env = lookup }
}

// WithSecretStores replaces the stores consulted for settings documents.
func WithSecretStores(stores ...SecretStore) Option {
	return func(l *Loader) { l.stores = stores }
}

// WithResolver registers the resolver for ref[<prefix>:...] values.
func WithResolver(prefix string, r SecretResolver) Option {
	return func(l *Loader) { l.resolvers[prefix] = r }
}

// WithPrompter replaces the prompter. A nil prompter disables prompting.
func WithPrompter(p Prompter) Option {
	return func(l *Loader) { l.prompter = p }
}

// WithSearchDirs replaces the config directories, lowest priority first.
func WithSearchDirs(dirs ...string) Option {
	if dirs == nil {
		dirs = []string{}
	}
	return func(l *Loader) { l.dirs = dirs }
}

// New returns a Loader for app, e.g. "aruba".
func New(app string, opts ...Option) *Loader {
	pass := NewPassStore()
	l := &Loader{
		app:       app,
		overrides: map[string]any{},
		env:       os.LookupEnv,
		stores:    []SecretStore{pass},
		resolvers: map[string]SecretResolver{
			"pass": pass,
			"bw":   NewBitwarden(),
		},
		prompter: NewTerminalPrompter(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// App returns the tool name the loader reads settings for.
func (l *Loader) App() string { return l.app }

// Load fills target, a pointer to a tagged settings struct.
func (l *Loader) Load(ctx context.Context, target any) error {
	fields, err := Fields(target)
	if err != nil {
		return err
	}
	log := util.WithApp(l.app)

	v := viper.New()
	for _, f := range fields {
		if f.HasDefault {
			v.SetDefault(f.Key, defaultValue(f))
		}
	}

	readable := l.ReadableFiles()
	if len(readable) == 0 {
		log.Debug("No config files found")
	}
	for _, path := range readable {
		values, err := ParseConfigFile(path, "")
		if err != nil {
			return fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
		}
		log.Debugf("Loading config data from %s", path)
		if err := v.MergeConfigMap(values); err != nil {
			return err
		}
	}

	if err := l.mergeStores(ctx, v); err != nil {
		return err
	}

	if rv, ok := target.(RawValidator); ok {
		if err := rv.ValidateRaw(v.AllSettings(), readable); err != nil {
			return err
		}
	}

	for _, f := range fields {
		if val, ok := l.env(util.EnvName(l.app, f.Key)); ok && val != "" {
			v.Set(f.Key, val)
		}
	}
	for k, val := range l.overrides {
		v.Set(k, val)
	}

	raw := map[string]any{}
	for _, f := range fields {
		if val := v.Get(f.Key); !isEmpty(val) {
			raw[f.Key] = val
		}
	}

	if err := l.resolveRefs(ctx, v, fields); err != nil {
		return err
	}

	missing := missingFields(v, fields)
	if len(missing) > 0 && l.prompter != nil && l.prompter.Interactive() {
		prompted := false
		for _, f := range missing {
			if f.NoPrompt {
				continue
			}
			answer, err := l.prompter.Prompt(f)
			if err != nil {
				return fmt.Errorf("reading %s: %w", f.Key, err)
			}
			val, err := parseValue(f, answer)
			if err != nil {
				return err
			}
			v.Set(f.Key, val)
			raw[f.Key] = val
			prompted = true
		}
		if prompted {
			if err := l.offerSave(ctx, raw); err != nil {
				log.Warnf("Failed to save settings: %v", err)
			}
		}
		missing = missingFields(v, fields)
	}

	if len(missing) > 0 {
		var vb util.ValidationBuilder
		for _, f := range missing {
			vb.AddErrorf("%s is required: set it in a config file, with %s or --%s",
				f.Key, util.EnvName(l.app, f.Key), util.KebabCase(f.Key))
		}
		return vb.Build()
	}

	if err := v.Unmarshal(target, viper.DecodeHook(splitListHook)); err != nil {
		return fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}
	return nil
}

// storeEntries are the pass entry names for app, lowest priority first.
func (l *Loader) storeEntries() []string {
	return []string{"shared/uoft-" + l.app, "uoft-" + l.app}
}

func (l *Loader) mergeStores(ctx context.Context, v *viper.Viper) error {
	for _, s := range l.stores {
		for _, name := range l.storeEntries() {
			data, err := s.Lookup(ctx, name)
			if err != nil {
				return err
			}
			if strings.TrimSpace(data) == "" {
				continue
			}
			values, err := ParseConfig([]byte(data), FormatTOML)
			if err != nil {
				return fmt.Errorf("%w: %s entry %s is not valid TOML: %v", util.ErrInvalidConfig, s.Name(), name, err)
			}
			util.WithApp(l.app).Debugf("Loading config data from %s entry %s", s.Name(), name)
			if err := v.MergeConfigMap(values); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Loader) resolveRefs(ctx context.Context, v *viper.Viper, fields []Field) error {
	for _, f := range fields {
		s, ok := v.Get(f.Key).(string)
		if !ok {
			continue
		}
		prefix, name, isRef, err := ParseRef(s)
		if !isRef {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", util.ErrInvalidConfig, f.Key, err)
		}
		r, ok := l.resolvers[prefix]
		if !ok {
			return fmt.Errorf("%w: %s: unknown reference prefix %q in %s", util.ErrInvalidConfig, f.Key, prefix, s)
		}
		secret, err := r.Lookup(ctx, name)
		if err != nil {
			return fmt.Errorf("resolving %s for %s: %w", s, f.Key, err)
		}
		v.Set(f.Key, secret)
	}
	return nil
}

// SaveTargets lists where settings can be saved: pass entries as
// "<store>:<entry>", then writable or creatable config files.
func (l *Loader) SaveTargets() []string {
	var out []string
	for _, s := range l.stores {
		if i, ok := s.(interface{ Installed() bool }); ok && !i.Installed() {
			continue
		}
		for _, name := range l.storeEntries() {
			out = append(out, s.Name()+":"+name)
		}
	}
	return append(out, l.SaveableFiles()...)
}

// Save merges values into target, one of SaveTargets.
func (l *Loader) Save(ctx context.Context, target string, values map[string]any) error {
	for _, s := range l.stores {
		name, ok := strings.CutPrefix(target, s.Name()+":")
		if !ok {
			continue
		}
		merged := map[string]any{}
		existing, err := s.Lookup(ctx, name)
		if err != nil {
			return err
		}
		if strings.TrimSpace(existing) != "" {
			if merged, err = ParseConfig([]byte(existing), FormatTOML); err != nil {
				return fmt.Errorf("%s entry %s is not valid TOML: %w", s.Name(), name, err)
			}
		}
		for k, v := range values {
			merged[k] = v
		}
		data, err := EncodeConfig(merged, FormatTOML)
		if err != nil {
			return err
		}
		return s.Store(ctx, name, string(data))
	}
	return CreateOrUpdateConfigFile(target, values, "")
}

func (l *Loader) offerSave(ctx context.Context, values map[string]any) error {
	targets := l.SaveTargets()
	if len(targets) == 0 {
		return nil
	}
	choice, err := l.prompter.Choose("Save these settings to", targets)
	if errors.Is(err, ErrSkipped) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := l.Save(ctx, choice, values); err != nil {
		return err
	}
	util.WithApp(l.app).Infof("Settings saved to %s", choice)
	return nil
}

func missingFields(v *viper.Viper, fields []Field) []Field {
	var out []Field
	for _, f := range fields {
		if f.Required && isEmpty(v.Get(f.Key)) {
			out = append(out, f)
		}
	}
	return out
}

func isEmpty(val any) bool {
	if val == nil {
		return true
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

func defaultValue(f Field) any {
	if f.Kind == reflect.Slice {
		return util.SplitCommaSeparated(f.Default)
	}
	return f.Default
}

func parseValue(f Field, s string) (any, error) {
	switch f.Kind {
	case reflect.Slice:
		return util.SplitCommaSeparated(s), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, util.NewValidationError(fmt.Sprintf("%s: %q is not a boolean", f.Key, s))
		}
		return b, nil
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, util.NewValidationError(fmt.Sprintf("%s: %q is not a number", f.Key, s))
		}
		return n, nil
	}
	return s, nil
}

// splitListHook decodes comma-separated strings (env vars, INI values) into
// string slices.
func splitListHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to.Kind() == reflect.Slice && to.Elem().Kind() == reflect.String {
		return util.SplitCommaSeparated(reflect.ValueOf(data).String()), nil
	}
	return data, nil
}
