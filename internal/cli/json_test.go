package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/knock/internal/errors"
	"github.com/rileyhilliard/knock/pkg/probe"
)

func TestWriteJSONSuccess_BasicData(t *testing.T) {
	var buf bytes.Buffer

	data := map[string]string{"key": "value"}
	err := WriteJSONSuccess(&buf, data)
	require.NoError(t, err)

	var env JSONEnvelope
	err = json.Unmarshal(buf.Bytes(), &env)
	require.NoError(t, err)

	assert.True(t, env.Success)
	assert.Nil(t, env.Error)

	dataMap, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "value", dataMap["key"])
}

func TestWriteJSONSuccess_NilData(t *testing.T) {
	var buf bytes.Buffer

	err := WriteJSONSuccess(&buf, nil)
	require.NoError(t, err)

	var env JSONEnvelope
	err = json.Unmarshal(buf.Bytes(), &env)
	require.NoError(t, err)

	assert.True(t, env.Success)
	assert.Nil(t, env.Data)
	assert.Nil(t, env.Error)
}

func TestWriteJSONFromError_GenericError(t *testing.T) {
	var buf bytes.Buffer

	err := WriteJSONFromError(&buf, fmt.Errorf("something went wrong"))
	require.NoError(t, err)

	var env JSONEnvelope
	err = json.Unmarshal(buf.Bytes(), &env)
	require.NoError(t, err)

	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeUnknown, env.Error.Code)
	assert.Equal(t, "something went wrong", env.Error.Message)
}

func TestWriteJSONFromError_StructuredError(t *testing.T) {
	var buf bytes.Buffer

	kerr := errors.New(errors.ErrConfig, "Config file not found", "Run 'knock init' to create one")
	err := WriteJSONFromError(&buf, kerr)
	require.NoError(t, err)

	var env JSONEnvelope
	err = json.Unmarshal(buf.Bytes(), &env)
	require.NoError(t, err)

	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeConfigNotFound, env.Error.Code)
	assert.Equal(t, "Config file not found", env.Error.Message)
	assert.Equal(t, "Run 'knock init' to create one", env.Error.Suggestion)
}

func TestErrorToJSON_NilError(t *testing.T) {
	assert.Nil(t, ErrorToJSON(nil))
}

func TestErrorToJSON_KeyMismatch(t *testing.T) {
	mismatch := &probe.KeyMismatchError{
		Host:        "web.example.com",
		Fingerprint: "SHA256:abcdef",
	}

	je := ErrorToJSON(mismatch)
	require.NotNil(t, je)
	assert.Equal(t, ErrCodeHostKey, je.Code)
	assert.Contains(t, je.Message, "web.example.com")
	assert.Contains(t, je.Suggestion, "ssh-keygen -R")
}

func TestErrorToJSON_NetError(t *testing.T) {
	netErr := &probe.NetError{
		Kind: probe.NetRefused,
		Addr: "10.0.0.1:22",
		Err:  fmt.Errorf("connection refused"),
	}

	je := ErrorToJSON(netErr)
	require.NotNil(t, je)
	assert.Equal(t, ErrCodeUnreachable, je.Code)
	assert.Contains(t, je.Message, "10.0.0.1:22")
}

func TestMapErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{"config not found", errors.ErrConfig, "Config file not found", ErrCodeConfigNotFound},
		{"config invalid", errors.ErrConfig, "Invalid trust policy", ErrCodeConfigInvalid},
		{"auth", errors.ErrAuth, "All credentials rejected", ErrCodeAuthFailed},
		{"host key", errors.ErrHostKey, "Host key mismatch", ErrCodeHostKey},
		{"network", errors.ErrNetwork, "Connection refused", ErrCodeUnreachable},
		{"probe", errors.ErrProbe, "Probe run aborted", ErrCodeProbeFailed},
		{"unknown", "WEIRD", "???", ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mapErrorCode(tt.code, tt.message))
		})
	}
}
