package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	// ErrUnknownTool is returned for tool names outside the enabled set.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is returned when arguments fail decoding or validation.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Config enables one catalog tool and optionally tightens it.
type Config struct {
	// Name selects the catalog tool.
	Name string
	// Description overrides the catalog description.
	Description string
	// Fields adds per-argument policies.
	Fields map[string]FieldPolicy
}

// Call is a validated tool call ready for the canvas layer.
type Call struct {
	// ID is the call id assigned by the model service.
	ID string `json:"id"`
	// Name is the tool name.
	Name string `json:"name"`
	// Arguments is the typed argument struct for Name.
	Arguments Arguments `json:"arguments"`
}

// DecodeError reports a tool call that could not be decoded.
type DecodeError struct {
	// CallID is the offending call id.
	CallID string
	// Tool is the offending tool name.
	Tool string
	// Err is the underlying cause.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("tool call %s (%s): %v", e.CallID, e.Tool, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type entry struct {
	def        Definition
	resolved   *jsonschema.Resolved
	parameters map[string]any
	policies   *fieldPolicies
}

// Registry is the read-only set of tools offered to the model.
type Registry struct {
	entries []*entry
	byName  map[string]*entry
}

// NewRegistry builds a registry. With no configs the whole catalog is enabled.
func NewRegistry(configs []Config) (*Registry, error) {
	catalog := Catalog()
	byCatalogName := make(map[string]Definition, len(catalog))
	for _, def := range catalog {
		byCatalogName[def.Name] = def
	}

	if len(configs) == 0 {
		configs = make([]Config, 0, len(catalog))
		for _, def := range catalog {
			configs = append(configs, Config{Name: def.Name})
		}
	}

	r := &Registry{byName: make(map[string]*entry, len(configs))}
	for _, cfg := range configs {
		def, ok := byCatalogName[cfg.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, cfg.Name)
		}
		if _, dup := r.byName[cfg.Name]; dup {
			return nil, fmt.Errorf("duplicate tool: %s", cfg.Name)
		}
		if strings.TrimSpace(cfg.Description) != "" {
			def.Description = cfg.Description
		}
		resolved, err := def.Schema.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("tool %s: resolve schema: %w", def.Name, err)
		}
		params, err := schemaMap(def.Schema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", def.Name, err)
		}
		policies, err := compilePolicies(def.Name, cfg.Fields)
		if err != nil {
			return nil, err
		}
		e := &entry{def: def, resolved: resolved, parameters: params, policies: policies}
		r.entries = append(r.entries, e)
		r.byName[def.Name] = e
	}
	return r, nil
}

// Definitions returns enabled tools in declaration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.def)
	}
	return out
}

// Parameters returns the JSON schema of a tool as a generic map.
func (r *Registry) Parameters(name string) (map[string]any, bool) {
	e, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return e.parameters, true
}

// Decode validates raw JSON arguments for the named tool and returns the typed call.
// Anything that does not match the declared shape is rejected.
func (r *Registry) Decode(id, name, raw string) (Call, error) {
	fail := func(err error) (Call, error) {
		return Call{}, &DecodeError{CallID: id, Tool: name, Err: err}
	}

	e, ok := r.byName[name]
	if !ok {
		return fail(ErrUnknownTool)
	}

	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 {
		data = []byte("{}")
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fail(fmt.Errorf("%w: malformed json: %v", ErrInvalidArguments, err))
	}
	obj, ok := instance.(map[string]any)
	if !ok {
		return fail(fmt.Errorf("%w: arguments must be a JSON object", ErrInvalidArguments))
	}
	if err := e.resolved.Validate(obj); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrInvalidArguments, err))
	}

	args := e.def.newArgs()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(args); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrInvalidArguments, err))
	}
	if err := args.Validate(); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrInvalidArguments, err))
	}
	if err := e.policies.check(obj); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrInvalidArguments, err))
	}

	return Call{ID: id, Name: name, Arguments: args}, nil
}

func schemaMap(schema *jsonschema.Schema) (map[string]any, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return out, nil
}
