package inference

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/mangiafuoco/pkg/orchestrator"
)

func TestSettingsValidate(t *testing.T) {
	s := NewSettings()
	require.Error(t, s.Validate(), "missing API key should fail")

	s.APIKey = "sk-test"
	require.NoError(t, s.Validate())

	s.Model = ""
	require.Error(t, s.Validate())
}

func TestMakeClient_RequiresAPIKey(t *testing.T) {
	_, err := MakeClient(NewSettings())
	require.Error(t, err)
}

func TestNewOpenAICaller(t *testing.T) {
	s := NewSettings()
	s.APIKey = "sk-test"
	s.BaseURL = "http://localhost:4000/v1"

	caller, err := NewOpenAICaller(s)
	require.NoError(t, err)
	require.NotNil(t, caller)
}

func TestMakeChatMessages(t *testing.T) {
	msgs := makeChatMessages([]orchestrator.Message{
		{Role: orchestrator.RoleSystem, Content: "you are helpful"},
		{Role: orchestrator.RoleUser, Content: "hello"},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "you are helpful", msgs[0].Content)
	assert.Equal(t, "user", msgs[1].Role)
}

func TestModelError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ModelError{Model: "gpt-4o", Err: cause}
	assert.Contains(t, err.Error(), "gpt-4o")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}
