package vcschema_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vcschema "github.com/credkit/vcschema"
)

func TestIssues_ErrorSummary(t *testing.T) {
	iss := vcschema.Issues{
		vcschema.NewIssue("/a", vcschema.CodeNotFound, map[string]any{"path": "a"}),
		vcschema.NewIssue("/b", vcschema.CodeAlreadyExists, map[string]any{"key": "b"}),
		{Path: "/c", Code: vcschema.CodeParseError},
		{Path: "/d", Code: vcschema.CodeParseError},
	}
	assert.Equal(t,
		"not_found at /a: no field at a; already_exists at /b: field b already exists; parse_error at /c; ... (total 4)",
		iss.Error())
	assert.Empty(t, vcschema.Issues{}.Error())
}

func TestIssues_SentinelMatching(t *testing.T) {
	err := fmt.Errorf("save: %w", vcschema.Issues{vcschema.NewIssue("/properties/credentialSubject/properties/name", vcschema.CodeAlreadyExists, nil)})
	assert.ErrorIs(t, err, vcschema.ErrAlreadyExists)
	assert.NotErrorIs(t, err, vcschema.ErrNotFound)

	dup := vcschema.Issues{{Code: vcschema.CodeDuplicateKey}}
	assert.ErrorIs(t, dup, vcschema.ErrParse)

	iss, ok := vcschema.AsIssues(err)
	require.True(t, ok)
	assert.True(t, iss.HasCode(vcschema.CodeAlreadyExists))
	assert.False(t, iss.HasCode(vcschema.CodeTitleRequired))

	_, ok = vcschema.AsIssues(errors.New("plain"))
	assert.False(t, ok)
	_, ok = vcschema.AsIssues(nil)
	assert.False(t, ok)
}

func TestIssues_UnwrapCause(t *testing.T) {
	is := vcschema.NewIssue("/", vcschema.CodeParseError, map[string]any{"reason": "eof"})
	is.Cause = io.ErrUnexpectedEOF
	assert.ErrorIs(t, vcschema.Issues{is}, io.ErrUnexpectedEOF)
	assert.Equal(t, "invalid schema JSON: eof", is.Message)
}

func TestAppendIssues(t *testing.T) {
	got := vcschema.AppendIssues(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = vcschema.AppendIssues(got, vcschema.Issue{Code: vcschema.CodeExampleMismatch})
	assert.Len(t, got, 1)
}
