package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/model"
)

type sendInputArgs struct {
	ID        string            `json:"id"`
	Message   *string           `json:"message"`
	Items     []model.InputItem `json:"items"`
	Interrupt bool              `json:"interrupt"`
}

type sendInputResult struct {
	SubmissionID string `json:"submission_id"`
}

// SendInput delivers a follow-up turn to an already-spawned agent.
func SendInput(ctx context.Context, env *Env, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[sendInputArgs](raw)
	if err != nil {
		return Output{}, err
	}
	receiver, err := parseAgentID(args.ID)
	if err != nil {
		return Output{}, err
	}
	items, err := parseCollabInput(args.Message, args.Items)
	if err != nil {
		return Output{}, err
	}

	submissionID, err := sendInputToMember(ctx, env, receiver, items, args.Interrupt)
	if err != nil {
		return Output{}, err
	}
	return marshalOutput(sendInputResult{SubmissionID: submissionID})
}
