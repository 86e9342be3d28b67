package tenantdb_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

func TestSchemaNotFoundError(t *testing.T) {
	t.Parallel()

	err := &tenantdb.SchemaNotFoundError{Schema: "ghost_schema"}

	t.Run("carries the schema name", func(t *testing.T) {
		t.Parallel()

		assert.Contains(t, err.Error(), "ghost_schema")

		var typed *tenantdb.SchemaNotFoundError
		require.ErrorAs(t, fmt.Errorf("get pool: %w", err), &typed)
		assert.Equal(t, "ghost_schema", typed.Schema)
	})

	t.Run("matches the sentinel", func(t *testing.T) {
		t.Parallel()

		assert.ErrorIs(t, err, tenantdb.ErrSchemaNotFound)
		assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), tenantdb.ErrSchemaNotFound)
	})

	t.Run("does not match unrelated errors", func(t *testing.T) {
		t.Parallel()

		assert.False(t, errors.Is(errors.New("connection refused"), tenantdb.ErrSchemaNotFound))
	})
}
