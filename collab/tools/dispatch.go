package tools

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/codes"

	"github.com/agentmesh/collabcore/collab/collaberr"
)

// Tool names the lead-facing model sees.
const (
	ToolSpawnAgent        = "spawn_agent"
	ToolSpawnTeam         = "spawn_team"
	ToolSendInput         = "send_input"
	ToolWait              = "wait"
	ToolWaitTeam          = "wait_team"
	ToolCloseTeam         = "close_team"
	ToolTeamMessage       = "team_message"
	ToolTeamBroadcast     = "team_broadcast"
	ToolTeamAskLead       = "team_ask_lead"
	ToolTeamInboxPop      = "team_inbox_pop"
	ToolTeamInboxAck      = "team_inbox_ack"
	ToolTeamTaskClaim     = "team_task_claim"
	ToolTeamTaskClaimNext = "team_task_claim_next"
	ToolTeamTaskComplete  = "team_task_complete"
	ToolTeamTaskList      = "team_task_list"
	ToolTeamCleanup       = "team_cleanup"
	ToolResumeAgent       = "resume_agent"
)

// Dispatch routes one tool call by name to its handler. callID identifies
// this specific invocation for the begin/end UI events; it is ignored by
// handlers that don't emit any. The call is wrapped in a span named after
// the tool so a trace shows which collaboration operation ran underneath
// whatever turn invoked it.
func Dispatch(ctx context.Context, env *Env, tool string, caller Caller, callID string, raw json.RawMessage) (Output, error) {
	if env.Telemetry.Tracer == nil {
		return route(ctx, env, tool, caller, callID, raw)
	}
	ctx, span := env.Telemetry.Tracer.Start(ctx, "collab.tools."+tool)
	defer span.End()
	out, err := route(ctx, env, tool, caller, callID, raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return out, err
}

func route(ctx context.Context, env *Env, tool string, caller Caller, callID string, raw json.RawMessage) (Output, error) {
	switch tool {
	case ToolSpawnAgent:
		return SpawnAgent(ctx, env, caller, callID, raw)
	case ToolSpawnTeam:
		return SpawnTeam(ctx, env, caller, callID, raw)
	case ToolSendInput:
		return SendInput(ctx, env, raw)
	case ToolWait:
		return Wait(ctx, env, caller, callID, raw)
	case ToolWaitTeam:
		return WaitTeam(ctx, env, caller, callID, raw)
	case ToolCloseTeam:
		return CloseTeam(ctx, env, caller, callID, raw)
	case ToolTeamMessage:
		return TeamMessage(ctx, env, caller, raw)
	case ToolTeamBroadcast:
		return TeamBroadcast(ctx, env, caller, raw)
	case ToolTeamAskLead:
		return TeamAskLead(ctx, env, caller, raw)
	case ToolTeamInboxPop:
		return TeamInboxPop(ctx, env, caller, raw)
	case ToolTeamInboxAck:
		return TeamInboxAck(ctx, env, caller, raw)
	case ToolTeamTaskClaim:
		return TeamTaskClaim(ctx, env, caller, raw)
	case ToolTeamTaskClaimNext:
		return TeamTaskClaimNext(ctx, env, caller, raw)
	case ToolTeamTaskComplete:
		return TeamTaskComplete(ctx, env, caller, raw)
	case ToolTeamTaskList:
		return TeamTaskList(ctx, env, caller, raw)
	case ToolTeamCleanup:
		return TeamCleanup(ctx, env, caller, raw)
	case ToolResumeAgent:
		return ResumeAgent(ctx, env, caller, callID, raw)
	default:
		return Output{}, collaberr.Validation("unknown collaboration tool `%s`", tool)
	}
}
