package rollout

import "encoding/json"

const (
	ChannelAnalysis = "analysis"
	ChannelFinal    = "final"
)

// Rollout is one line of a rollout JSONL export: the prompt that seeded the
// run and the multi-channel conversation the model produced.
type Rollout struct {
	Prompt       Thread `json:"prompt"`
	Conversation Thread `json:"conversation"`
}

type Thread struct {
	Messages []Message `json:"messages"`
}

type Message struct {
	Channel string  `json:"channel"`
	Author  Author  `json:"author"`
	Content Content `json:"content"`
}

type Author struct {
	Role string `json:"role"`
}

// Content carries at most one of Parts, Text, or Result. Body resolves them
// in that priority order.
type Content struct {
	Parts  []string `json:"parts"`
	Text   string   `json:"text"`
	Result string   `json:"result"`
}

func (c Content) Body() string {
	if len(c.Parts) > 0 {
		return c.Parts[0]
	}
	if c.Text != "" {
		return c.Text
	}
	return c.Result
}

// Prompt threads mix bare strings (system preamble) with message objects, so
// a string element decodes to a message holding only text content.
func (m *Message) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Message{Content: Content{Text: s}}
		return nil
	}
	type plain Message
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Message(p)
	return nil
}

// PromptMessage returns the canonical prompt message: the second element of
// the prompt thread (the first is system preamble).
func (r Rollout) PromptMessage() (Message, bool) {
	if len(r.Prompt.Messages) < 2 {
		return Message{}, false
	}
	return r.Prompt.Messages[1], true
}

// SortKey is the prompt text the whole collection is ordered by. It requires
// the prompt message to carry a parts list; Text/Result fallbacks do not apply
// here.
func (r Rollout) SortKey() (string, bool) {
	msg, ok := r.PromptMessage()
	if !ok || len(msg.Content.Parts) == 0 {
		return "", false
	}
	return msg.Content.Parts[0], true
}

// ChannelMessages returns the conversation messages on the given channel, in
// original order.
func (r Rollout) ChannelMessages(channel string) []Message {
	out := make([]Message, 0, len(r.Conversation.Messages))
	for _, m := range r.Conversation.Messages {
		if m.Channel == channel {
			out = append(out, m)
		}
	}
	return out
}
