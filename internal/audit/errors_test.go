package audit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingArtifactError_Is(t *testing.T) {
	err := fmt.Errorf("rank: %w", &MissingArtifactError{Kind: "metrics", Path: "reports/m.csv"})

	assert.True(t, errors.Is(err, ErrMissingArtifact))
	assert.True(t, IsMissingArtifact(err))
	assert.False(t, errors.Is(err, ErrEmptyInput))

	path, ok := MissingPath(err)
	assert.True(t, ok)
	assert.Equal(t, "reports/m.csv", path)
	assert.Contains(t, err.Error(), "missing metrics artifact: reports/m.csv")
}

func TestMalformedRecordError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := &MalformedRecordError{Path: "raw.jsonl", Line: 3, Err: cause}

	assert.True(t, errors.Is(err, ErrMalformedRecord))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "malformed record at raw.jsonl:3: unexpected end of JSON input", err.Error())
}

func TestMissingPath_OtherError(t *testing.T) {
	_, ok := MissingPath(ErrEmptyInput)
	assert.False(t, ok)
}
