package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// compiledSchema compiles a schema map once and validates decoded JSON
// values against it.
type compiledSchema struct {
	name   string
	raw    map[string]any
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

func newCompiledSchema(name string, raw map[string]any) *compiledSchema {
	return &compiledSchema{name: name, raw: raw}
}

func (c *compiledSchema) compile() (*jsonschema.Schema, error) {
	c.once.Do(func() {
		b, err := json.Marshal(c.raw)
		if err != nil {
			c.err = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		url := c.name + ".json"
		if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
			c.err = fmt.Errorf("add schema: %w", err)
			return
		}
		c.schema, c.err = compiler.Compile(url)
	})
	return c.schema, c.err
}

// Validate checks obj and then decodes it into out.
func (c *compiledSchema) Validate(obj map[string]any, out any) error {
	s, err := c.compile()
	if err != nil {
		return fmt.Errorf("compile %s schema: %w", c.name, err)
	}
	if err := s.Validate(any(obj)); err != nil {
		return fmt.Errorf("json does not match %s schema: %w", c.name, err)
	}
	if out == nil {
		return nil
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func nullable(t string) []any { return []any{t, "null"} }
