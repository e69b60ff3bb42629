// Package config loads runtime settings from a CUE document.
//
// A document is unified with an embedded schema that supplies defaults
// and constraints, so an empty document is a valid configuration:
//
//	db: "ledger.db"
//	loader: window: "5ms"
//	bus: buffer: 128
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSrc string

// Error codes reported in LoadError.
const (
	ErrCodeNotFound  = "CONFIG_NOT_FOUND"
	ErrCodeParse     = "CONFIG_PARSE"
	ErrCodeInvalid   = "CONFIG_INVALID"
	ErrCodeBadWindow = "CONFIG_BAD_WINDOW"
)

// LoadError reports a configuration that could not be loaded.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Config holds the runtime settings.
type Config struct {
	DB     string
	Loader LoaderConfig
	Bus    BusConfig
	HTTP   HTTPConfig
}

// LoaderConfig configures the per-request batch loaders.
type LoaderConfig struct {
	Window   time.Duration
	MaxBatch int
}

// BusConfig configures the change bus.
type BusConfig struct {
	Buffer int
}

// HTTPConfig configures the demonstration HTTP server.
type HTTPConfig struct {
	Addr string
}

// document mirrors #Config for decoding.
type document struct {
	DB     string `json:"db"`
	Loader struct {
		Window   string `json:"window"`
		MaxBatch int    `json:"maxBatch"`
	} `json:"loader"`
	Bus struct {
		Buffer int `json:"buffer"`
	} `json:"bus"`
	HTTP struct {
		Addr string `json:"addr"`
	} `json:"http"`
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := Parse("default.cue", nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema is invalid: %v", err))
	}
	return cfg
}

// Load reads and parses the CUE file at path.
func Load(path string) (Config, error) {
	src, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, src)
}

// Parse compiles src, unifies it with the schema and decodes the result.
// filename is used in error positions only.
func Parse(filename string, src []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, toLoadError(ErrCodeParse, err)
	}

	v := def.Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, toLoadError(ErrCodeInvalid, err)
	}

	var doc document
	if err := v.Decode(&doc); err != nil {
		return Config{}, toLoadError(ErrCodeInvalid, err)
	}

	window, err := time.ParseDuration(doc.Loader.Window)
	if err != nil || window < 0 {
		pos := v.LookupPath(cue.ParsePath("loader.window")).Pos()
		return Config{}, &LoadError{
			Code:    ErrCodeBadWindow,
			Message: fmt.Sprintf("loader.window %q is not a non-negative duration", doc.Loader.Window),
			Pos:     pos,
		}
	}

	return Config{
		DB:     doc.DB,
		Loader: LoaderConfig{Window: window, MaxBatch: doc.Loader.MaxBatch},
		Bus:    BusConfig{Buffer: doc.Bus.Buffer},
		HTTP:   HTTPConfig{Addr: doc.HTTP.Addr},
	}, nil
}

// toLoadError keeps the first CUE error position.
func toLoadError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: cueerrors.Details(err, nil)}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		le.Pos = errs[0].Position()
	}
	return le
}
