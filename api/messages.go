package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"searchlens/history"
)

type Action string

const (
	ActionGetSummary             Action = "getSummary"
	ActionGetRelatedTopics       Action = "getRelatedTopics"
	ActionGetSuggestions         Action = "getSuggestions"
	ActionExpandQuery            Action = "expandQuery"
	ActionGetHistory             Action = "getHistory"
	ActionCheckHistoryPermission Action = "checkHistoryPermission"
	ActionClearCache             Action = "clearCache"
	ActionRecordVisit            Action = "recordVisit"
)

// Message is a request sent by the extension. The set of implementations is
// closed; Server.Dispatch handles each one.
type Message interface {
	action() Action
}

type GetSummary struct {
	URL string `json:"url"`
}

// GetTopics serves both getRelatedTopics and getSuggestions.
type GetTopics struct {
	PageText string `json:"pageText"`
}

type ExpandQuery struct {
	Query          string          `json:"query"`
	Location       string          `json:"location"`
	BrowserHistory []history.Visit `json:"browserHistory"`
}

type GetHistory struct {
	Minutes  int `json:"minutes"`
	MaxItems int `json:"maxItems"`
}

type CheckHistoryPermission struct{}

type ClearCache struct{}

type RecordVisit struct {
	history.Visit
}

func (GetSummary) action() Action             { return ActionGetSummary }
func (GetTopics) action() Action              { return ActionGetRelatedTopics }
func (ExpandQuery) action() Action            { return ActionExpandQuery }
func (GetHistory) action() Action             { return ActionGetHistory }
func (CheckHistoryPermission) action() Action { return ActionCheckHistoryPermission }
func (ClearCache) action() Action             { return ActionClearCache }
func (RecordVisit) action() Action            { return ActionRecordVisit }

var ErrUnknownAction = errors.New("unknown action")

// DecodeMessage reads a {"action": ..., ...fields} envelope.
func DecodeMessage(data []byte) (Message, error) {
	var envelope struct {
		Action Action `json:"action"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	var msg Message
	switch envelope.Action {
	case ActionGetSummary:
		msg = &GetSummary{}
	case ActionGetRelatedTopics, ActionGetSuggestions:
		msg = &GetTopics{}
	case ActionExpandQuery:
		msg = &ExpandQuery{}
	case ActionGetHistory:
		msg = &GetHistory{}
	case ActionCheckHistoryPermission:
		return CheckHistoryPermission{}, nil
	case ActionClearCache:
		return ClearCache{}, nil
	case ActionRecordVisit:
		msg = &RecordVisit{}
	case "":
		return nil, errors.New("invalid message: missing action")
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownAction, envelope.Action)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("invalid %s message: %w", envelope.Action, err)
	}
	return deref(msg), nil
}

func deref(msg Message) Message {
	switch m := msg.(type) {
	case *GetSummary:
		return *m
	case *GetTopics:
		return *m
	case *ExpandQuery:
		return *m
	case *GetHistory:
		return *m
	case *RecordVisit:
		return *m
	default:
		return msg
	}
}
