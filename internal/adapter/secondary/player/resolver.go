package player

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"adhan-alarm/internal/domain"
)

const (
	SelectorDefault = "default"
	SelectorCustom  = "custom"
)

var builtinSounds = map[string]string{
	"makkah":        "adhan_makkah",
	"adhan_makkah":  "adhan_makkah",
	"madinah":       "adhan_madinah",
	"adhan_madinah": "adhan_madinah",
	"egypt":         "adhan_egypt",
	"adhan_egypt":   "adhan_egypt",
}

var soundExts = []string{".mp3", ".ogg", ".wav"}

// FileResolver resolves selectors against a sounds directory.
// Order: builtin recording, then the user's custom file, then the default alert.
type FileResolver struct {
	fs          afero.Fs
	soundsDir   string
	defaultPath string
}

var _ domain.SoundResolver = (*FileResolver)(nil)

// NewFileResolver creates a resolver. A nil fs means the OS filesystem.
// defaultPath may be empty, in which case the Makkah recording is the default.
func NewFileResolver(fs afero.Fs, soundsDir, defaultPath string) *FileResolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileResolver{fs: fs, soundsDir: soundsDir, defaultPath: defaultPath}
}

// Resolve returns a playable source or domain.ErrSoundUnavailable.
func (r *FileResolver) Resolve(selector, customPath string) (domain.SoundSource, error) {
	sel := strings.ToLower(strings.TrimSpace(selector))

	switch {
	case sel == "" || sel == SelectorDefault:
	case sel == SelectorCustom:
		if customPath != "" && r.exists(customPath) {
			return domain.SoundSource{Selector: selector, Path: customPath, Origin: domain.OriginCustom}, nil
		}
	case builtinSounds[sel] != "":
		if path, ok := r.builtin(builtinSounds[sel]); ok {
			return domain.SoundSource{Selector: selector, Path: path, Origin: domain.OriginBuiltin}, nil
		}
	case filepath.IsAbs(selector):
		if r.exists(selector) {
			return domain.SoundSource{Selector: selector, Path: selector, Origin: domain.OriginCustom}, nil
		}
	}

	return r.fallback(selector)
}

func (r *FileResolver) fallback(selector string) (domain.SoundSource, error) {
	if r.defaultPath != "" && r.exists(r.defaultPath) {
		return domain.SoundSource{Selector: selector, Path: r.defaultPath, Origin: domain.OriginDefault}, nil
	}
	if path, ok := r.builtin("adhan_makkah"); ok {
		return domain.SoundSource{Selector: selector, Path: path, Origin: domain.OriginDefault}, nil
	}
	return domain.SoundSource{}, fmt.Errorf("%w: %q (sounds dir %s)", domain.ErrSoundUnavailable, selector, r.soundsDir)
}

func (r *FileResolver) builtin(base string) (string, bool) {
	if r.soundsDir == "" {
		return "", false
	}
	for _, ext := range soundExts {
		path := filepath.Join(r.soundsDir, base+ext)
		if r.exists(path) {
			return path, true
		}
	}
	return "", false
}

func (r *FileResolver) exists(path string) bool {
	info, err := r.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// Builtins lists the selectors with a recording present in the sounds directory.
func (r *FileResolver) Builtins() []string {
	var out []string
	for _, name := range []string{"makkah", "madinah", "egypt"} {
		if _, ok := r.builtin(builtinSounds[name]); ok {
			out = append(out, name)
		}
	}
	return out
}
