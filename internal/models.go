package internal

import (
	"encoding/json"
	"strings"
)

// Role is the author of a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType tags a ContentBlock variant
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// Message is one entry of an exchange's request context
type Message struct {
	Role    Role    `json:"role" yaml:"role"`
	Content Content `json:"content" yaml:"content"`
}

// Content is either plain text or an ordered list of blocks.
// A non-nil Blocks slice selects the block form.
type Content struct {
	Text   string
	Blocks []ContentBlock
}

// TextContent builds plain text content
func TextContent(text string) Content {
	return Content{Text: text}
}

// BlockContent builds block content
func BlockContent(blocks ...ContentBlock) Content {
	if blocks == nil {
		blocks = []ContentBlock{}
	}
	return Content{Blocks: blocks}
}

// IsBlocks reports whether the content is in block form
func (c Content) IsBlocks() bool {
	return c.Blocks != nil
}

// PlainText flattens the content to text, joining text blocks with newlines
func (c Content) PlainText() string {
	if !c.IsBlocks() {
		return c.Text
	}
	var parts []string
	for _, b := range c.Blocks {
		if b.Type == BlockText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// MarshalJSON emits a JSON string for text content and an array for blocks
func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsBlocks() {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts a string or an array of blocks; malformed blocks are dropped
func (c *Content) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = parseContent(v)
	return nil
}

// MarshalYAML mirrors MarshalJSON
func (c Content) MarshalYAML() (interface{}, error) {
	if c.IsBlocks() {
		return c.Blocks, nil
	}
	return c.Text, nil
}

// ContentBlock is a closed tagged variant over text, tool_use and tool_result
type ContentBlock struct {
	Type BlockType `yaml:"type"`

	// text
	Text string `yaml:"text,omitempty"`

	// tool_use
	ID    string `yaml:"id,omitempty"`
	Name  string `yaml:"name,omitempty"`
	Input any    `yaml:"input,omitempty"`

	// tool_result
	ToolUseID string `yaml:"tool_use_id,omitempty"`
	Result    any    `yaml:"content,omitempty"`
	IsError   bool   `yaml:"is_error,omitempty"`
}

// TextBlock builds a text block
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolUseBlock builds a tool_use block
func ToolUseBlock(id, name string, input any) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock builds a tool_result block
func ToolResultBlock(toolUseID string, content any) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Result: content}
}

// MarshalJSON writes only the fields of the block's variant
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	obj := map[string]any{"type": b.Type}
	switch b.Type {
	case BlockText:
		obj["text"] = b.Text
	case BlockToolUse:
		obj["id"] = b.ID
		obj["name"] = b.Name
		obj["input"] = b.Input
	case BlockToolResult:
		obj["tool_use_id"] = b.ToolUseID
		obj["content"] = b.Result
		if b.IsError {
			obj["is_error"] = true
		}
	}
	return json.Marshal(obj)
}

// UnmarshalJSON validates the block shape; an invalid block decodes to the zero value
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	block, _ := parseBlock(v)
	*b = block
	return nil
}
