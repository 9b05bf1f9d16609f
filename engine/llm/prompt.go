package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

const defaultInstructions = "You are a business analyst expert at creating detailed BRDs."

// PromptConfig holds the instructional preamble and sampling temperature.
type PromptConfig struct {
	Instructions string
	Temperature  float64
}

// LoadPromptConfig reads a prompt file with the layout
// {"brd": {"requirements": {"user": "...", "temperature": 0.7}}}.
// Missing keys keep the values from fallback; a missing file returns fallback.
func LoadPromptConfig(path string, fallback PromptConfig) (PromptConfig, error) {
	if fallback.Instructions == "" {
		fallback.Instructions = defaultInstructions
	}
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fallback, nil
	}
	if err != nil {
		return fallback, fmt.Errorf("failed to read prompt config: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return fallback, fmt.Errorf("prompt config %s is not valid JSON", path)
	}
	cfg := fallback
	req := gjson.GetBytes(data, "brd.requirements")
	if user := req.Get("user"); user.Type == gjson.String && user.String() != "" {
		cfg.Instructions = user.String()
	}
	if temp := req.Get("temperature"); temp.Type == gjson.Number {
		cfg.Temperature = temp.Float()
	}
	return cfg, nil
}

// Field is one key/value entry of the prompt context block.
type Field struct {
	Key   string
	Value any
}

// PromptContext is an ordered set of context fields. It serializes as a JSON
// object whose keys keep insertion order.
type PromptContext []Field

func (pc PromptContext) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range pc {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalVerbatim(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := marshalVerbatim(f.Value)
		if err != nil {
			return nil, fmt.Errorf("context field %s: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalVerbatim encodes v without HTML escaping so that &, < and > reach
// the provider unchanged.
func marshalVerbatim(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Get returns the value stored under key.
func (pc PromptContext) Get(key string) (any, bool) {
	for _, f := range pc {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

var prettyOptions = &pretty.Options{Width: 80, Prefix: "", Indent: "  ", SortKeys: false}

// BuildPrompt assembles the single user message sent to the provider:
// instructions, an optional pretty-printed context block, then the task.
func BuildPrompt(instructions string, promptCtx PromptContext, description string) (string, error) {
	if instructions == "" {
		instructions = defaultInstructions
	}
	if len(promptCtx) == 0 {
		return fmt.Sprintf("%s\n\nTask: %s", instructions, description), nil
	}
	raw, err := marshalVerbatim(promptCtx)
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt context: %w", err)
	}
	block := bytes.TrimSpace(pretty.PrettyOptions(raw, prettyOptions))
	return fmt.Sprintf("%s\n\nContext: %s\n\nTask: %s", instructions, block, description), nil
}
