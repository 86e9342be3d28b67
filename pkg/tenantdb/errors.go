package tenantdb

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaNotFound is the comparison target for SchemaNotFoundError,
	// usable with errors.Is when the schema name itself is not needed.
	ErrSchemaNotFound = errors.New("tenant schema not found")

	// ErrProvisioningFailed wraps any schema DDL failure during tenant
	// creation. The enclosing transaction is rolled back in full, so nothing
	// partially provisioned is left behind.
	ErrProvisioningFailed = errors.New("tenant provisioning failed")

	// ErrPoolsClosed is returned from Get after shutdown began.
	ErrPoolsClosed = errors.New("tenant pools are closed")

	// ErrInvalidSchemaName guards DDL and search_path interpolation.
	ErrInvalidSchemaName = errors.New("invalid schema name")
)

// SchemaNotFoundError reports that a registry row points at a schema that
// does not physically exist in the cluster. Control-plane metadata and
// storage have drifted; callers must be able to tell this apart from a plain
// database failure, e.g. deactivation flows treat it as already cleaned up.
type SchemaNotFoundError struct {
	Schema string
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("tenant schema %q does not exist", e.Schema)
}

// Is makes errors.Is(err, ErrSchemaNotFound) match.
func (e *SchemaNotFoundError) Is(target error) bool {
	return target == ErrSchemaNotFound
}
