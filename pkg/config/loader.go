package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/espforge/espforge/pkg/engine"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader decodes and validates project documents.
type Loader struct {
	validator *validator.Validate
}

// NewLoader creates a loader whose validation messages use YAML field names.
func NewLoader() *Loader {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
		_, err := LookupPlatform(Platform(fl.Field().String()))
		return err == nil
	})
	return &Loader{validator: v}
}

// LoadFile reads and parses the project document at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*ProjectConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engine.NewParseError("failed to read project document", err).WithResource(path)
	}
	cfg, err := l.Parse(data)
	if err != nil {
		var ee *engine.EngineError
		if errors.As(err, &ee) {
			return nil, ee.WithResource(path)
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a YAML project document and validates its structure.
func (l *Loader) Parse(data []byte) (*ProjectConfig, error) {
	var cfg ProjectConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, engine.NewParseError("project document is empty", err)
		}
		return nil, engine.NewParseError("malformed project document", err)
	}
	if err := l.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct-level constraints of an already decoded document.
func (l *Loader) Validate(cfg *ProjectConfig) error {
	err := l.validator.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return engine.NewParseError("invalid project document", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return engine.NewParseError("invalid project document", errors.New(strings.Join(msgs, "; "))).
		WithDetail("fields", msgs)
}

// describeFieldError turns a validator failure into a short message.
func describeFieldError(fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", path, fe.Param(), fe.Value())
	case "platform":
		return fmt.Sprintf("%s: unsupported platform %v (supported: %s)", path, fe.Value(), strings.Join(SupportedPlatforms(), ", "))
	case "gte", "gt", "lte":
		return fmt.Sprintf("%s must be %s %s, got %v", path, fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
	}
}
