package config

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// SchemaViolation is one failed constraint, located by document path.
type SchemaViolation struct {
	Path    string
	Message string
}

func (v SchemaViolation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Schema names registered by NewSchemaRegistry.
const (
	SchemaProject = "project"
)

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}
	if err := sr.RegisterSchema(SchemaProject, "#Project", builtinProjectSchema); err != nil {
		panic(fmt.Sprintf("built-in schema: %v", err))
	}
	return sr
}

// RegisterSchema compiles schema and registers its definition under name.
func (sr *SchemaRegistry) RegisterSchema(name, definition, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	def := val.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return fmt.Errorf("schema %s does not define %s", name, definition)
	}

	sr.schemas[name] = def
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// Check unifies data with the named schema and returns every violation.
// An error is returned only when the schema is missing or data cannot be encoded.
func (sr *SchemaRegistry) Check(ctx context.Context, schemaName string, data interface{}) ([]SchemaViolation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return nil, fmt.Errorf("schema %s not found", schemaName)
	}

	sr.mu.Lock()
	dataVal := sr.ctx.Encode(data)
	sr.mu.Unlock()
	if err := dataVal.Err(); err != nil {
		return nil, fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	err := unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil, nil
	}

	var violations []SchemaViolation
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		v := SchemaViolation{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		if seen[v.String()] {
			continue
		}
		seen[v.String()] = true
		violations = append(violations, v)
	}
	sort.Slice(violations, func(i, j int) bool { return violations[i].String() < violations[j].String() })
	return violations, nil
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data interface{}) error {
	violations, err := sr.Check(ctx, schemaName, data)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		msgs := make([]string, len(violations))
		for i, v := range violations {
			msgs[i] = v.String()
		}
		return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// ValidateProject validates a project document against the project schema.
func (sr *SchemaRegistry) ValidateProject(ctx context.Context, cfg *ProjectConfig) ([]SchemaViolation, error) {
	return sr.Check(ctx, SchemaProject, cfg)
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const builtinProjectSchema = `
#Pin: int & >=0 & <=255

#Identifier: string & =~"^[A-Za-z_][A-Za-z0-9_]*$"

#Instance: {
	// using names a manifest from the catalog
	using: string & !=""
	with?: {[string]: _}
}

#Project: {
	espforge: {
		name:          string & !=""
		platform:      "esp32" | "esp32c2" | "esp32c3" | "esp32c6" | "esp32h2" | "esp32s2" | "esp32s3"
		enable_async?: bool
		wokwi?: {
			diagram?: string
			config?:  string
		}
	}

	example?: {
		name:   string & !=""
		props?: {[string]: _}
	}

	esp32?: {
		gpio?: [#Identifier]: {
			pin:        #Pin
			direction?: "input" | "output"
			pullup?:    bool
			pulldown?:  bool
		}
		spi?: [#Identifier]: {
			spi:       int & >=0
			miso:      #Pin
			mosi:      #Pin
			sck:       #Pin
			cs:        #Pin
			frequency: int & >0
			mode:      int & >=0 & <=3
		}
		i2c?: [#Identifier]: {
			i2c:       int & >=0
			sda:       #Pin
			scl:       #Pin
			frequency: int & >0
		}
		uart?: [#Identifier]: {
			uart: int & >=0
			tx:   #Pin
			rx:   #Pin
			baud: int & >0
		}
	}

	components?: [#Identifier]: #Instance
	devices?: [#Identifier]:    #Instance

	app?: {
		variables?: [#Identifier]: {
			type:     string
			initial?: bool | number | string
		}
		setup?: [...{[string]: _}]
		loop?: [...{[string]: _}]
	}
}
`
