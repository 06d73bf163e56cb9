// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package secrets exposes values kept in separate files, such as a mounted
// container secret or a dotenv file, as ${NAME} expansions in the main
// configuration.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/goschtalt/goschtalt"
	"github.com/goschtalt/goschtalt/pkg/meta"
	"github.com/joho/godotenv"
)

var (
	ErrInvalidSource = errors.New("invalid secret source")
)

// FormatEnv selects the dotenv reader.
const FormatEnv = "env"

// Source is a file holding secrets.
type Source struct {
	// File is the absolute path of the secret file.
	File string

	// Required makes a missing file an error.
	Required bool

	// Format overrides the format implied by the file extension.  FormatEnv
	// reads a dotenv file; other values name a configuration decoder such as
	// "yaml" or "properties".
	Format string

	// Origin names the source in the configuration explanation.  The default
	// is the file name.
	Origin string

	// Keys picks the values that are exposed.  When empty, every value of a
	// dotenv file is exposed under its own name.
	Keys []Key

	// root is the filesystem File is resolved in.  The default is '/'.
	root fs.FS
}

// Key exposes one value of the file.
type Key struct {
	// From is the key in the file.
	From string

	// As is the name used in ${...}.  The default is From.
	As string

	// Optional keys that are not in the file are skipped.
	Optional bool
}

type lookupFunc func(key string) (string, bool, error)

func (s Source) isEnv() bool {
	if s.Format != "" {
		return s.Format == FormatEnv
	}
	base := path.Base(s.File)
	return base == ".env" || strings.HasSuffix(base, ".env")
}

func (s Source) fsys() (fs.FS, string) {
	root := s.root
	if root == nil {
		root = os.DirFS("/")
	}
	return root, strings.TrimPrefix(s.File, "/")
}

// readEnv reads a dotenv file.  A missing optional file has no values.
func (s Source) readEnv() (map[string]string, error) {
	root, file := s.fsys()

	data, err := fs.ReadFile(root, file)
	if err != nil {
		if !s.Required && errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	return godotenv.Unmarshal(string(data))
}

// reader returns how values are looked up, and every key when the file lists
// them itself.
func (s Source) reader() (lookupFunc, []string, error) {
	if s.isEnv() {
		vals, err := s.readEnv()
		if err != nil {
			return nil, nil, err
		}

		all := make([]string, 0, len(vals))
		for k := range vals {
			all = append(all, k)
		}

		return func(key string) (string, bool, error) {
			v, ok := vals[key]
			return v, ok, nil
		}, all, nil
	}

	root, file := s.fsys()
	opt := goschtalt.AddFilesAs(root, s.Format, file)
	if s.Required {
		opt = goschtalt.AddFileAs(root, s.Format, file)
	}

	gs, err := goschtalt.New(opt, goschtalt.AutoCompile(true))
	if err != nil {
		return nil, nil, err
	}

	return func(key string) (string, bool, error) {
		var v string
		err := gs.Unmarshal(key, &v)
		if errors.Is(err, meta.ErrNotFound) {
			return "", false, nil
		}
		return v, err == nil, err
	}, nil, nil
}

// resolve reads the file and returns the expander for its values.
func (s Source) resolve() (goschtalt.ExpanderFunc, error) {
	if s.File == "" {
		return nil, fmt.Errorf("%w: file is missing", ErrInvalidSource)
	}

	lookup, all, err := s.reader()
	if err != nil {
		return nil, err
	}

	keys := s.Keys
	if len(keys) == 0 {
		for _, k := range all {
			keys = append(keys, Key{From: k})
		}
	}

	vals := make(map[string]string, len(keys))
	for _, k := range keys {
		if k.From == "" {
			if k.Optional {
				continue
			}
			return nil, fmt.Errorf("%w: %s: key without a name", ErrInvalidSource, s.File)
		}

		v, found, err := lookup(k.From)
		if err != nil {
			return nil, err
		}
		if !found {
			if k.Optional {
				continue
			}
			return nil, fmt.Errorf("%w: %s: %s is missing", ErrInvalidSource, s.File, k.From)
		}

		name := k.As
		if name == "" {
			name = k.From
		}
		vals[name] = v
	}

	return goschtalt.ExpanderFunc(
		func(name string) (string, bool) {
			v, ok := vals[name]
			return v, ok
		}), nil
}

// Apply reads the list of sources found under key in the configuration and
// adds their values as expansions.
func Apply(gs *goschtalt.Config, key string, required bool, opts ...goschtalt.ExpandOption) error {
	return apply(gs, key, required, nil, opts...)
}

func apply(gs *goschtalt.Config, key string, required bool, root fs.FS, opts ...goschtalt.ExpandOption) error {
	optional := goschtalt.Optional()
	if required {
		optional = goschtalt.Required()
	}

	sources, err := goschtalt.Unmarshal[[]Source](gs, key, optional)
	if err != nil {
		return err
	}

	additional := make([]goschtalt.Option, 0, len(sources))
	for _, src := range sources {
		src.root = root
		fn, err := src.resolve()
		if err != nil {
			return err
		}

		origin := src.Origin
		if origin == "" {
			origin = src.File
		}

		expOpts := append([]goschtalt.ExpandOption{goschtalt.WithOrigin(origin)}, opts...)
		additional = append(additional, goschtalt.Expand(fn, expOpts...))
	}

	return gs.With(additional...)
}
