package models

import (
	"encoding/json"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn represents a single message in a conversation.
type ChatTurn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// UnmarshalJSON accepts both {role, text} and the web client's
// {type: "user"|"bot", content} shape. Anything that is not the user is
// the assistant.
func (t *ChatTurn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string `json:"role"`
		Type    string `json:"type"`
		Text    string `json:"text"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	role := raw.Role
	if role == "" {
		role = raw.Type
	}
	if strings.EqualFold(strings.TrimSpace(role), RoleUser) {
		t.Role = RoleUser
	} else {
		t.Role = RoleAssistant
	}

	t.Text = raw.Text
	if t.Text == "" {
		t.Text = raw.Content
	}
	return nil
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message             string     `json:"message"`
	Context             string     `json:"context,omitempty"`
	ConversationHistory []ChatTurn `json:"conversationHistory,omitempty"`
}

func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Message             string     `json:"message"`
		Context             string     `json:"context"`
		ConversationHistory []ChatTurn `json:"conversationHistory"`
		History             []ChatTurn `json:"history"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Message = raw.Message
	r.Context = raw.Context
	r.ConversationHistory = raw.ConversationHistory
	if len(r.ConversationHistory) == 0 {
		r.ConversationHistory = raw.History
	}
	return nil
}

// ChatResponse is the reply from the advisor.
type ChatResponse struct {
	Response string `json:"response"`
}

// ChatErrorResponse always carries a displayable Response on server-side
// failures so the UI has something to render.
type ChatErrorResponse struct {
	Error    string `json:"error"`
	Response string `json:"response,omitempty"`
}
