package protocol

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/sseqchart/pkg/errors"
)

// Command is a dot-separated command path stored as its prefixes, longest
// first: "chart.class.add" is {"chart.class.add", "chart.class", "chart"}.
type Command []string

// ParseCommand expands a dot-separated command into its prefixes.
func ParseCommand(s string) Command {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	cmd := make(Command, 0, len(parts))
	for i := len(parts); i > 0; i-- {
		cmd = append(cmd, strings.Join(parts[:i], "."))
	}
	return cmd
}

// String returns the full command.
func (c Command) String() string {
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

// MarshalJSON encodes the command as its prefix list.
func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(c))
}

// UnmarshalJSON accepts a dot string or a list of strings. A one-element
// list is expanded like a string.
func (c *Command) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = ParseCommand(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "cmd must be a string or a list of strings").WithField("cmd")
	}
	if len(list) == 1 {
		*c = ParseCommand(list[0])
		return nil
	}
	*c = Command(list)
	return nil
}

// Message is one wire message. Args is always empty in this protocol;
// payloads travel in Kwargs.
type Message struct {
	Cmd    Command        `json:"cmd"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
	UUID   string         `json:"uuid,omitempty"`
}

// NewMessage builds a message for cmd with a fresh correlation uuid.
func NewMessage(cmd string, kwargs map[string]any) Message {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return Message{
		Cmd:    ParseCommand(cmd),
		Args:   []any{},
		Kwargs: kwargs,
		UUID:   uuid.NewString(),
	}
}

// Decode parses one message.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		if e, ok := err.(*errors.Error); ok {
			return Message{}, e
		}
		return Message{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "malformed message")
	}
	if err := msg.validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// DecodeAll parses a single message or a JSON array of messages.
func DecodeAll(data []byte) ([]Message, error) {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "[") {
		msg, err := Decode(data)
		if err != nil {
			return nil, err
		}
		return []Message{msg}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "malformed message list")
	}
	msgs := make([]Message, len(raw))
	for i, r := range raw {
		msg, err := Decode(r)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "message %d", i)
		}
		msgs[i] = msg
	}
	return msgs, nil
}

func (m *Message) validate() error {
	if len(m.Cmd) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "message is missing a command").WithField("cmd")
	}
	if m.Kwargs == nil {
		m.Kwargs = map[string]any{}
	}
	if m.Args == nil {
		m.Args = []any{}
	}
	return nil
}
