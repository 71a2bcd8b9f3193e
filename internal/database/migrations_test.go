package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/attempt-service/internal/config"
)

const initMigration = "../../migrations/000001_init.up.sql"

// columnDefinition returns the definition line of column inside the CREATE TABLE block of table.
func columnDefinition(t *testing.T, schema, table, column string) string {
	t.Helper()
	start := strings.Index(schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	require.NotEqual(t, -1, start, "table %s not found", table)
	block := schema[start:]
	block = block[:strings.Index(block, ");")]

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, column+" ") {
			return line
		}
	}
	t.Fatalf("column %s.%s not found", table, column)
	return ""
}

func TestInitMigration_OptionalAssignmentSettingsAreNullable(t *testing.T) {
	raw, err := os.ReadFile(filepath.FromSlash(initMigration))
	require.NoError(t, err)
	schema := string(raw)

	// Each of these maps to a pointer field where nil means "no limit".
	for _, column := range []string{"window_start", "window_end", "attempts_allowed", "time_limit_minutes", "max_points"} {
		t.Run(column, func(t *testing.T) {
			definition := strings.ToUpper(columnDefinition(t, schema, "assignments", column))
			assert.NotContains(t, definition, "NOT NULL")
			assert.NotContains(t, definition, "DEFAULT")
		})
	}
}

func TestNewMigrator_RejectsMemoryDriver(t *testing.T) {
	migrator, err := NewMigrator(config.DatabaseConfig{Driver: config.DriverMemory})
	assert.Nil(t, migrator)
	assert.Error(t, err)
}
