package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "benefitflow/pkg/domain-errors"
)

func TestParseUUIDBackedIDs(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseWorkflowID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseProfileID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseStepID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, StepID(valid), id)
		assert.False(t, id.IsNil())
	})
}

func TestParseStringIDs(t *testing.T) {
	t.Run("scheme ID must be non-empty", func(t *testing.T) {
		_, err := ParseSchemeID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("document type ID round trips", func(t *testing.T) {
		id, err := ParseDocumentTypeID("proof-of-address")
		require.NoError(t, err)
		assert.Equal(t, "proof-of-address", id.String())
	})
}
