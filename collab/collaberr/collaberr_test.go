package collaberr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentmesh/collabcore/collab/collaberr"
)

func TestRespondToModel_ValidationIsModelVisible(t *testing.T) {
	err := collaberr.Validation("duplicate member name %q", "alpha")
	msg, ok := collaberr.RespondToModel(err)
	assert.True(t, ok)
	assert.Equal(t, `duplicate member name "alpha"`, msg)
}

func TestRespondToModel_FatalIsNotModelVisible(t *testing.T) {
	err := collaberr.Fatalf("marshal exploded")
	_, ok := collaberr.RespondToModel(err)
	assert.False(t, ok)
}

func TestRespondToModel_PlainErrorIsNotModelVisible(t *testing.T) {
	_, ok := collaberr.RespondToModel(errors.New("boom"))
	assert.False(t, ok)
}

func TestPersistence_PreservesUnderlyingError(t *testing.T) {
	underlying := errors.New("disk full")
	err := collaberr.Persistence("could not write team.json", underlying)
	assert.ErrorIs(t, err, underlying)
}

func TestErrDepthLimitReached_CanonicalText(t *testing.T) {
	msg, ok := collaberr.RespondToModel(collaberr.ErrDepthLimitReached)
	assert.True(t, ok)
	assert.Equal(t, "Agent depth limit reached. Solve the task yourself.", msg)
}
