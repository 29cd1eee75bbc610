package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/nimasrn/xpensemate/internal/migrations"
	"github.com/nimasrn/xpensemate/pkg/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testDB struct {
	*db.DB
	rawDB *gorm.DB
}

func setupTestDB(t *testing.T) *testDB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := db.NewSQLiteMemory(name)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(d, migrations.FS))
	t.Cleanup(func() { _ = d.Close() })

	return &testDB{
		DB:    d,
		rawDB: d.Write(context.Background()),
	}
}
