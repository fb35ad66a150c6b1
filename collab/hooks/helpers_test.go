package hooks_test

import (
	"context"

	"github.com/agentmesh/collabcore/collab/telemetry"
)

func ctxBg() context.Context { return context.Background() }

func noopTelemetry() telemetry.Bundle { return telemetry.NewNoopBundle() }
