package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Canvas tool names.
const (
	CreateShape   = "create_shape"
	UpdateShape   = "update_shape"
	DeleteShapes  = "delete_shapes"
	QueryShapes   = "query_shapes"
	ArrangeShapes = "arrange_shapes"
	CreateLayout  = "create_layout"
)

// Shape kinds understood by the canvas.
var shapeKinds = []any{"rectangle", "circle", "ellipse", "line", "text", "triangle"}

// Arrangement modes understood by the canvas.
var arrangeModes = []any{
	"align_left", "align_center", "align_right",
	"align_top", "align_middle", "align_bottom",
	"distribute_horizontal", "distribute_vertical", "grid",
}

// Layout kinds understood by the canvas.
var layoutKinds = []any{"login_form", "nav_bar", "card", "button_row"}

// Arguments is a decoded, typed tool argument set.
type Arguments interface {
	// Validate checks constraints the JSON schema cannot express.
	Validate() error
}

// CreateShapeArgs are the arguments of create_shape.
type CreateShapeArgs struct {
	Type     string   `json:"type"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Radius   *float64 `json:"radius,omitempty"`
	Color    string   `json:"color,omitempty"`
	Text     string   `json:"text,omitempty"`
	FontSize *float64 `json:"font_size,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

// Validate checks per-kind required dimensions.
func (a CreateShapeArgs) Validate() error {
	switch a.Type {
	case "rectangle", "ellipse", "triangle":
		if a.Width == nil || a.Height == nil {
			return fmt.Errorf("%s requires width and height", a.Type)
		}
	case "circle":
		if a.Radius == nil {
			return errors.New("circle requires radius")
		}
	case "line":
		if a.Width == nil && a.Height == nil {
			return errors.New("line requires width or height")
		}
	case "text":
		if strings.TrimSpace(a.Text) == "" {
			return errors.New("text shape requires text")
		}
	}
	return nil
}

// UpdateShapeArgs are the arguments of update_shape.
type UpdateShapeArgs struct {
	ID       string   `json:"id"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Radius   *float64 `json:"radius,omitempty"`
	Color    *string  `json:"color,omitempty"`
	Text     *string  `json:"text,omitempty"`
	FontSize *float64 `json:"font_size,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

// Validate requires at least one change.
func (a UpdateShapeArgs) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("id is required")
	}
	if a.X == nil && a.Y == nil && a.Width == nil && a.Height == nil && a.Radius == nil &&
		a.Color == nil && a.Text == nil && a.FontSize == nil && a.Rotation == nil {
		return errors.New("update_shape requires at least one change")
	}
	return nil
}

// DeleteShapesArgs are the arguments of delete_shapes.
type DeleteShapesArgs struct {
	IDs []string `json:"ids"`
}

// Validate rejects blank and duplicate ids.
func (a DeleteShapesArgs) Validate() error {
	return uniqueIDs(a.IDs)
}

// QueryShapesArgs are the arguments of query_shapes.
type QueryShapesArgs struct {
	Type         string `json:"type,omitempty"`
	Color        string `json:"color,omitempty"`
	TextContains string `json:"text_contains,omitempty"`
}

// Validate accepts any filter combination, including none.
func (a QueryShapesArgs) Validate() error {
	return nil
}

// ArrangeShapesArgs are the arguments of arrange_shapes.
type ArrangeShapesArgs struct {
	IDs     []string `json:"ids"`
	Mode    string   `json:"mode"`
	Spacing *float64 `json:"spacing,omitempty"`
	Columns *int     `json:"columns,omitempty"`
}

// Validate checks ids and mode-specific options.
func (a ArrangeShapesArgs) Validate() error {
	if err := uniqueIDs(a.IDs); err != nil {
		return err
	}
	if a.Columns != nil && a.Mode != "grid" {
		return errors.New("columns is only valid for grid mode")
	}
	if strings.HasPrefix(a.Mode, "distribute_") && len(a.IDs) < 3 {
		return errors.New("distribute requires at least three shapes")
	}
	return nil
}

// CreateLayoutArgs are the arguments of create_layout.
type CreateLayoutArgs struct {
	Kind  string   `json:"kind"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Items []string `json:"items,omitempty"`
}

// Validate requires items for list-like layouts.
func (a CreateLayoutArgs) Validate() error {
	switch a.Kind {
	case "nav_bar", "button_row":
		if len(a.Items) == 0 {
			return fmt.Errorf("%s requires items", a.Kind)
		}
	}
	for i, item := range a.Items {
		if strings.TrimSpace(item) == "" {
			return fmt.Errorf("items[%d] is empty", i)
		}
	}
	return nil
}

func uniqueIDs(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("ids[%d] is empty", i)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Definition describes one tool offered to the model.
type Definition struct {
	// Name is the tool name.
	Name string
	// Description explains the tool to the model.
	Description string
	// Schema is the JSON schema of the arguments object.
	Schema *jsonschema.Schema

	newArgs func() Arguments
}

// Catalog returns the full set of canvas tools. Each call returns fresh values.
func Catalog() []Definition {
	return []Definition{
		{
			Name:        CreateShape,
			Description: "Create a single shape on the canvas at absolute coordinates.",
			Schema: object(map[string]*jsonschema.Schema{
				"type":      enum("Shape kind.", shapeKinds),
				"x":         number("Left edge in canvas pixels."),
				"y":         number("Top edge in canvas pixels."),
				"width":     positive("Width in pixels."),
				"height":    positive("Height in pixels."),
				"radius":    positive("Radius in pixels for circles."),
				"color":     text("Fill colour name or hex value.", 64),
				"text":      text("Text content for text shapes.", 2000),
				"font_size": positive("Font size in pixels."),
				"rotation":  number("Rotation in degrees."),
			}, "type", "x", "y"),
			newArgs: func() Arguments { return &CreateShapeArgs{} },
		},
		{
			Name:        UpdateShape,
			Description: "Move, resize, recolour, rotate or edit an existing shape.",
			Schema: object(map[string]*jsonschema.Schema{
				"id":        text("Shape id.", 128),
				"x":         number("New left edge."),
				"y":         number("New top edge."),
				"width":     positive("New width."),
				"height":    positive("New height."),
				"radius":    positive("New radius."),
				"color":     text("New colour.", 64),
				"text":      text("New text content.", 2000),
				"font_size": positive("New font size."),
				"rotation":  number("New rotation in degrees."),
			}, "id"),
			newArgs: func() Arguments { return &UpdateShapeArgs{} },
		},
		{
			Name:        DeleteShapes,
			Description: "Delete one or more shapes by id.",
			Schema: object(map[string]*jsonschema.Schema{
				"ids": ids("Shape ids to delete.", 1),
			}, "ids"),
			newArgs: func() Arguments { return &DeleteShapesArgs{} },
		},
		{
			Name:        QueryShapes,
			Description: "Look up shapes on the canvas by kind, colour or text.",
			Schema: object(map[string]*jsonschema.Schema{
				"type":          enum("Shape kind filter.", shapeKinds),
				"color":         text("Colour filter.", 64),
				"text_contains": text("Substring of the shape text.", 200),
			}),
			newArgs: func() Arguments { return &QueryShapesArgs{} },
		},
		{
			Name:        ArrangeShapes,
			Description: "Align, distribute or grid a group of shapes.",
			Schema: object(map[string]*jsonschema.Schema{
				"ids":     ids("Shape ids to arrange.", 2),
				"mode":    enum("Arrangement mode.", arrangeModes),
				"spacing": positive("Gap between shapes in pixels."),
				"columns": {Type: "integer", Description: "Column count for grid mode.", Minimum: ptr(1.0)},
			}, "ids", "mode"),
			newArgs: func() Arguments { return &ArrangeShapesArgs{} },
		},
		{
			Name:        CreateLayout,
			Description: "Create a composite UI layout made of several shapes.",
			Schema: object(map[string]*jsonschema.Schema{
				"kind": enum("Layout kind.", layoutKinds),
				"x":    number("Left edge of the layout."),
				"y":    number("Top edge of the layout."),
				"items": {
					Type:        "array",
					Description: "Labels for nav bar entries or buttons.",
					Items:       text("Label.", 100),
					MaxItems:    ptr(20),
				},
			}, "kind", "x", "y"),
			newArgs: func() Arguments { return &CreateLayoutArgs{} },
		},
	}
}

func object(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

func number(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: desc}
}

func positive(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: desc, ExclusiveMinimum: ptr(0.0)}
}

func text(desc string, maxLen int) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc, MinLength: ptr(1), MaxLength: ptr(maxLen)}
}

func enum(desc string, values []any) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc, Enum: values}
}

func ids(desc string, minItems int) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: desc,
		Items:       text("Shape id.", 128),
		MinItems:    ptr(minItems),
		MaxItems:    ptr(500),
	}
}

func ptr[T any](v T) *T {
	return &v
}
