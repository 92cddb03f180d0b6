package gateway

import (
	"strings"

	"github.com/codex-k8s/canvas-command-gateway/internal/completion"
)

// DefaultSystemPrompt instructs the model to act only through canvas tools.
const DefaultSystemPrompt = `You are the command assistant of a shared drawing canvas.
Turn each user instruction into one or more tool calls. Coordinates are canvas pixels with the origin at the top left.
Use query_shapes when you need to find existing shapes by kind, colour or text before changing them.
Never invent shape ids: use ids from the canvas state or from query results.
If the instruction cannot be done with the available tools, answer briefly in plain text without calling any tool.`

func (d *Dispatcher) buildMessages(req CommandRequest, canvasState []byte) []completion.Message {
	messages := make([]completion.Message, 0, len(req.History)+3)
	messages = append(messages, completion.Message{Role: completion.RoleSystem, Content: d.systemPrompt})
	if len(canvasState) > 0 {
		messages = append(messages, completion.Message{
			Role:    completion.RoleSystem,
			Content: "Current canvas state (JSON):\n" + string(canvasState),
		})
	}
	for _, msg := range req.History {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		messages = append(messages, completion.Message{Role: string(msg.Role), Content: msg.Content})
	}
	messages = append(messages, completion.Message{Role: completion.RoleUser, Content: req.Prompt})
	return messages
}

func (d *Dispatcher) toolSpecs() []completion.ToolSpec {
	defs := d.tools.Definitions()
	specs := make([]completion.ToolSpec, 0, len(defs))
	for _, def := range defs {
		params, _ := d.tools.Parameters(def.Name)
		specs = append(specs, completion.ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  params,
		})
	}
	return specs
}
