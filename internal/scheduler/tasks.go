package scheduler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

const TaskConversationReprocess = "conversations.reprocess"

type ConversationReprocessPayload struct {
	CallSID string   `json:"callSid"`
	Steps   []string `json:"steps,omitempty"`
}

func NewConversationReprocessTask(payload ConversationReprocessPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.CallSID) == "" {
		return nil, fmt.Errorf("reprocess task requires a call sid")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConversationReprocess, data), nil
}

func ParseConversationReprocessPayload(task *asynq.Task) (ConversationReprocessPayload, error) {
	var payload ConversationReprocessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ConversationReprocessPayload{}, err
	}
	return payload, nil
}

// reprocessTaskID dedupes identical pending jobs for the same call.
func reprocessTaskID(payload ConversationReprocessPayload) string {
	steps := "all"
	if len(payload.Steps) > 0 {
		steps = strings.Join(payload.Steps, "+")
	}
	return "reprocess:" + payload.CallSID + ":" + steps
}
