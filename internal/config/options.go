package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultModalWidth is the viewer width used when an image's own width is
// unknown.
const DefaultModalWidth = 512

// Options are the user preferences shared with the extension's options page.
type Options struct {
	PreloadAllImages bool `koanf:"preload_all_images"`
	ModalWidth       int  `koanf:"default_modal_width"`
}

func defaultOptions() Options {
	return Options{ModalWidth: DefaultModalWidth}
}

// OptionsStore serves the most recently loaded Options. It is safe for
// concurrent use.
type OptionsStore struct {
	mu   sync.RWMutex
	path string
	opts Options
}

// NewOptionsStore loads path. A missing file yields the defaults.
func NewOptionsStore(path string) (*OptionsStore, error) {
	s := &OptionsStore{path: path, opts: defaultOptions()}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// StaticOptions returns a store that always serves opts.
func StaticOptions(opts Options) *OptionsStore {
	if opts.ModalWidth <= 0 {
		opts.ModalWidth = DefaultModalWidth
	}
	return &OptionsStore{opts: opts}
}

func (s *OptionsStore) Options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Reload re-reads the options file.
func (s *OptionsStore) Reload() error {
	opts, err := loadOptions(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
	return nil
}

func loadOptions(path string) (Options, error) {
	opts := defaultOptions()
	if path == "" {
		return opts, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return opts, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return Options{}, fmt.Errorf("load options %s: %w", path, err)
	}
	if err := k.Unmarshal("", &opts); err != nil {
		return Options{}, fmt.Errorf("decode options %s: %w", path, err)
	}
	if opts.ModalWidth <= 0 {
		opts.ModalWidth = DefaultModalWidth
	}
	return opts, nil
}
