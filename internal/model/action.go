package model

import "encoding/json"

// ActionType tags the task mutation requested by a model reply.
type ActionType string

// Action tags understood by the executor. Anything else is treated as
// ActionNone.
const (
	ActionCreate   ActionType = "CREATE"
	ActionUpdate   ActionType = "UPDATE"
	ActionDelete   ActionType = "DELETE"
	ActionComplete ActionType = "COMPLETE"
	ActionNone     ActionType = "NONE"
)

// TaskDraft holds task fields as the model wrote them. Values stay in wire
// form so the executor can validate and report what it dropped.
type TaskDraft struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	IsCompleted *bool   `json:"isCompleted,omitempty"`
}

// Action is the tagged variant carried in the "action" field of a reply:
//
//	CREATE{task} | UPDATE{id, updates} | DELETE{id} | COMPLETE{id} | NONE
type Action struct {
	Type    ActionType `json:"type"`
	ID      string     `json:"id,omitempty"`
	Task    *TaskDraft `json:"task,omitempty"`
	Updates *TaskDraft `json:"updates,omitempty"`
}

// Kind returns the action tag, mapping unknown or missing tags to
// ActionNone.
func (a *Action) Kind() ActionType {
	if a == nil {
		return ActionNone
	}
	switch a.Type {
	case ActionCreate, ActionUpdate, ActionDelete, ActionComplete:
		return a.Type
	default:
		return ActionNone
	}
}

// UnmarshalJSON decodes an action leniently: a field of the wrong shape
// turns the action into NONE instead of failing the whole reply.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    ActionType      `json:"type"`
		ID      json.RawMessage `json:"id"`
		Task    json.RawMessage `json:"task"`
		Updates json.RawMessage `json:"updates"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*a = Action{Type: ActionNone}
		return nil
	}

	out := Action{Type: raw.Type}
	if len(raw.ID) > 0 {
		var id string
		if err := json.Unmarshal(raw.ID, &id); err != nil {
			// Numeric ids are accepted and kept in their literal form.
			var n json.Number
			if json.Unmarshal(raw.ID, &n) != nil {
				*a = Action{Type: ActionNone}
				return nil
			}
			id = n.String()
		}
		out.ID = id
	}
	if len(raw.Task) > 0 && string(raw.Task) != "null" {
		var d TaskDraft
		if err := json.Unmarshal(raw.Task, &d); err != nil {
			*a = Action{Type: ActionNone}
			return nil
		}
		out.Task = &d
	}
	if len(raw.Updates) > 0 && string(raw.Updates) != "null" {
		var d TaskDraft
		if err := json.Unmarshal(raw.Updates, &d); err != nil {
			*a = Action{Type: ActionNone}
			return nil
		}
		out.Updates = &d
	}

	*a = out
	return nil
}
