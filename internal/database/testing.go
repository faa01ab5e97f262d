package database

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// OpenTest returns a migrated in-memory SQLite database unique to t.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := Connect(dsn, WithSilentLogger())
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	t.Cleanup(func() { Close(db) })
	return db
}
