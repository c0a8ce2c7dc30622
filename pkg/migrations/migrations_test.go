package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	for _, dialect := range []string{Postgres, MySQL} {
		t.Run(dialect, func(t *testing.T) {
			entries, err := fs.ReadDir(files, "sql/"+dialect)
			require.NoError(t, err)

			ups, downs := map[string]bool{}, map[string]bool{}
			for _, e := range entries {
				name := e.Name()
				switch {
				case strings.HasSuffix(name, ".up.sql"):
					ups[strings.TrimSuffix(name, ".up.sql")] = true
				case strings.HasSuffix(name, ".down.sql"):
					downs[strings.TrimSuffix(name, ".down.sql")] = true
				default:
					t.Errorf("unexpected file %s", name)
				}
			}

			assert.NotEmpty(t, ups)
			assert.Equal(t, ups, downs)
		})
	}
}

func TestEmbeddedMigrationsCreateViewFilters(t *testing.T) {
	for _, dialect := range []string{Postgres, MySQL} {
		body, err := fs.ReadFile(files, "sql/"+dialect+"/000001_create_view_filters.up.sql")
		require.NoError(t, err)
		assert.Contains(t, string(body), "view_filters")
	}
}
