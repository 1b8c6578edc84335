package settings

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/uoft-netops/uoft-tools/pkg/util"
)

// dirName is the directory under each config root that holds uoft-tools files.
const dirName = "uoft-tools"

// sharedName is the base name of config files read by every tool.
const sharedName = "shared"

// FileState describes what the current user can do with a config file.
type FileState int

const (
	StateUnusable FileState = iota
	StateCreatable
	StateReadable
	StateWritable
)

func (s FileState) String() string {
	switch s {
	case StateWritable:
		return "writable"
	case StateReadable:
		return "readable"
	case StateCreatable:
		return "creatable"
	default:
		return "unusable"
	}
}

// ConfigFile is a candidate config file and its state.
type ConfigFile struct {
	Path   string    `json:"path" yaml:"path"`
	Format Format    `json:"format" yaml:"format"`
	State  FileState `json:"-" yaml:"-"`
}

// Readable reports whether the file exists and can be read.
func (f ConfigFile) Readable() bool {
	return f.State == StateReadable || f.State == StateWritable
}

// Saveable reports whether settings can be written to the file.
func (f ConfigFile) Saveable() bool {
	return f.State == StateWritable || f.State == StateCreatable
}

// StatFile returns the state of path for the current user.
func StatFile(path string) FileState {
	if unix.Access(path, unix.W_OK) == nil {
		return StateWritable
	}
	if unix.Access(path, unix.R_OK) == nil {
		return StateReadable
	}
	if _, err := os.Lstat(path); err == nil {
		return StateUnusable
	}
	if creatable(filepath.Dir(path)) {
		return StateCreatable
	}
	return StateUnusable
}

// creatable reports whether dir exists and is writable, or could be created.
func creatable(dir string) bool {
	if unix.Access(dir, unix.W_OK) == nil {
		return true
	}
	if _, err := os.Lstat(dir); err == nil {
		return false
	}
	parent := filepath.Dir(dir)
	if parent == dir {
		return false
	}
	return creatable(parent)
}

// siteConfigDir is the OS-wide config directory.
func siteConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join("/Library/Application Support", dirName)
	case "windows":
		return filepath.Join(os.Getenv("PROGRAMDATA"), dirName)
	}
	if xdg := os.Getenv("XDG_CONFIG_DIRS"); xdg != "" {
		first, _, _ := strings.Cut(xdg, string(os.PathListSeparator))
		return filepath.Join(first, dirName)
	}
	return filepath.Join("/etc/xdg", dirName)
}

// SearchDirs returns the config directories, lowest priority first.
func (l *Loader) SearchDirs() []string {
	if l.dirs != nil {
		return l.dirs
	}

	var dirs []string
	if d, ok := l.env(util.EnvName(l.app, "site_config")); ok && d != "" {
		dirs = append(dirs, d)
	} else {
		dirs = append(dirs, siteConfigDir())
	}

	var common string
	if home, err := os.UserHomeDir(); err == nil {
		common = filepath.Join(home, ".config", dirName)
		dirs = append(dirs, common)
	}

	if d, ok := l.env(util.EnvName(l.app, "user_config")); ok && d != "" {
		dirs = append(dirs, d)
	} else if ucd, err := os.UserConfigDir(); err == nil {
		if p := filepath.Join(ucd, dirName); p != common {
			dirs = append(dirs, p)
		}
	}
	return dirs
}

// Files returns every candidate config file, lowest priority first.
func (l *Loader) Files() []ConfigFile {
	var files []ConfigFile
	for _, dir := range l.SearchDirs() {
		for _, base := range []string{sharedName, l.app} {
			for _, format := range Formats {
				path := filepath.Join(dir, base+"."+string(format))
				files = append(files, ConfigFile{Path: path, Format: format, State: StatFile(path)})
			}
		}
	}
	if p, ok := l.env(util.EnvName(l.app, "config_file")); ok && p != "" {
		format, err := FormatOf(p)
		if err != nil {
			util.WithApp(l.app).Warnf("Ignoring %s: %v", p, err)
		} else {
			files = append(files, ConfigFile{Path: p, Format: format, State: StatFile(p)})
		}
	}
	return files
}

// ReadableFiles returns the paths of config files that exist and can be read.
func (l *Loader) ReadableFiles() []string {
	var out []string
	for _, f := range l.Files() {
		if f.Readable() {
			out = append(out, f.Path)
		}
	}
	return out
}

// SaveableFiles returns the paths of config files settings can be saved to.
func (l *Loader) SaveableFiles() []string {
	var out []string
	for _, f := range l.Files() {
		if f.Saveable() {
			out = append(out, f.Path)
		}
	}
	return out
}
