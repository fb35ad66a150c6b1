package remotecontrol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentmesh/collabcore/collab/remotecontrol"
)

func TestTake_ClearsPendingRequest(t *testing.T) {
	assert.False(t, remotecontrol.Take())

	remotecontrol.Request()
	assert.True(t, remotecontrol.Take())
	assert.False(t, remotecontrol.Take())
}
