// Package reply parses the model's structured reply and applies its memory
// mutation commands. Parsing is a validation pass producing typed commands;
// application is a separate sequential pass, so a malformed element never
// rolls back mutations that were already applied.
package reply

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kurahq/kura/internal/memory"
)

// FallbackText is shown when the reply parsed as JSON but carried no usable
// response field.
const FallbackText = "The assistant reply was not in the expected format."

// Action names the three mutation kinds the model may emit.
type Action string

const (
	ActionAdd    Action = "add"
	ActionDelete Action = "delete"
	ActionModify Action = "modify"
)

// Command is one validated memory mutation, consumed immediately and never
// persisted.
type Command struct {
	Action  Action
	ID      string
	Content string
}

// Result is the outcome of interpreting one raw model reply.
type Result struct {
	DisplayText string
	Applied     []Command // mutations that changed the store; adds carry their new id
	NoOps       int       // delete/modify against unknown ids
	Skipped     int       // elements dropped by validation
	Malformed   bool      // reply was not parseable or not schema-conformant
}

// envelopeSchema is the shape the model is instructed to return. Validation
// failures are logged and flagged but never abort the turn.
const envelopeSchema = `{
	"type": "object",
	"required": ["response"],
	"properties": {
		"response": {"type": "string"},
		"memory_operations": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["action"],
				"properties": {
					"action": {"type": "string"},
					"id": {"type": "string"},
					"content": {"type": "string"}
				}
			}
		}
	}
}`

// Interpreter validates model replies and applies their mutations to the
// memory store.
type Interpreter struct {
	store  *memory.Store
	logger *log.Logger
	schema *gojsonschema.Schema
}

func NewInterpreter(store *memory.Store, logger *log.Logger) (*Interpreter, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(envelopeSchema))
	if err != nil {
		return nil, fmt.Errorf("compile reply schema: %w", err)
	}
	return &Interpreter{store: store, logger: logger, schema: schema}, nil
}

// Interpret runs the validation pass and then applies the surviving commands
// in array order. No error ever propagates; every failure degrades to a safe
// fallback plus a log entry.
func (i *Interpreter) Interpret(raw string) Result {
	display, cmds, skipped, malformed := i.parse(raw)
	res := Result{DisplayText: display, Skipped: skipped, Malformed: malformed}

	for _, cmd := range cmds {
		switch cmd.Action {
		case ActionAdd:
			cmd.ID = i.store.Add(cmd.Content)
			i.logger.Printf("reply: added memory [%s]: %s", cmd.ID, cmd.Content)
			res.Applied = append(res.Applied, cmd)
		case ActionDelete:
			if !i.store.Delete(cmd.ID) {
				i.logger.Printf("reply: delete of unknown memory [%s] ignored", cmd.ID)
				res.NoOps++
				continue
			}
			i.logger.Printf("reply: deleted memory [%s]", cmd.ID)
			res.Applied = append(res.Applied, cmd)
		case ActionModify:
			if !i.store.Modify(cmd.ID, cmd.Content) {
				i.logger.Printf("reply: modify of unknown memory [%s] ignored", cmd.ID)
				res.NoOps++
				continue
			}
			i.logger.Printf("reply: modified memory [%s]: %s", cmd.ID, cmd.Content)
			res.Applied = append(res.Applied, cmd)
		}
	}
	return res
}

// parse is the validation pass. A reply that is not a JSON object comes back
// verbatim as the display text with zero commands. A JSON object that strays
// from the schema is logged and flagged, then mined for whatever valid parts
// it still carries.
func (i *Interpreter) parse(raw string) (display string, cmds []Command, skipped int, malformed bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		i.logger.Printf("reply: not a JSON object, showing raw text: %v", err)
		return raw, nil, 0, true
	}

	if result, err := i.schema.Validate(gojsonschema.NewStringLoader(raw)); err != nil {
		i.logger.Printf("reply: schema validation failed to run: %v", err)
		malformed = true
	} else if !result.Valid() {
		for _, desc := range result.Errors() {
			i.logger.Printf("reply: schema violation: %s", desc)
		}
		malformed = true
	}

	display, ok := obj["response"].(string)
	if !ok {
		display = FallbackText
	}

	rawOps, ok := obj["memory_operations"].([]any)
	if !ok {
		if _, present := obj["memory_operations"]; present {
			i.logger.Printf("reply: memory_operations is not an array, ignoring")
		}
		return display, nil, skipped, malformed
	}

	for idx, el := range rawOps {
		op, ok := el.(map[string]any)
		if !ok {
			i.logger.Printf("reply: operation %d is not an object, skipping", idx)
			skipped++
			continue
		}
		action, _ := op["action"].(string)
		id, _ := op["id"].(string)
		content, _ := op["content"].(string)

		switch Action(action) {
		case ActionAdd:
			if content == "" {
				i.logger.Printf("reply: add operation %d missing content, skipping", idx)
				skipped++
				continue
			}
			cmds = append(cmds, Command{Action: ActionAdd, Content: content})
		case ActionDelete:
			if id == "" {
				i.logger.Printf("reply: delete operation %d missing id, skipping", idx)
				skipped++
				continue
			}
			cmds = append(cmds, Command{Action: ActionDelete, ID: id})
		case ActionModify:
			if id == "" || content == "" {
				i.logger.Printf("reply: modify operation %d missing id or content, skipping", idx)
				skipped++
				continue
			}
			cmds = append(cmds, Command{Action: ActionModify, ID: id, Content: content})
		default:
			i.logger.Printf("reply: unknown action %q in operation %d, skipping", action, idx)
			skipped++
		}
	}
	return display, cmds, skipped, malformed
}
