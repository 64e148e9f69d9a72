package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adsparkhq/adspark-backend/pkg/migrate"
)

func TestValidateMigrationsDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestAdJobsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_ad_jobs.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS ad_jobs",
		"CHECK (status IN ('pending', 'completed'))",
		"CHECK (video_status IS NULL OR video_status IN ('pending', 'completed'))",
		"is_public BOOLEAN NOT NULL DEFAULT TRUE",
		"category TEXT NOT NULL DEFAULT 'other'",
		"style TEXT NOT NULL DEFAULT 'modern'",
		"DROP TABLE IF EXISTS ad_jobs",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestUsersMigrationGuardsBalance(t *testing.T) {
	content := readMigration(t, "*_create_users.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS users",
		"credits INTEGER NOT NULL DEFAULT 20",
		"CHECK (credits >= 0)",
		"idx_users_external_uid",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreditEventsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_credit_events.sql")

	checks := []string{
		"FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE",
		"CHECK (type IN ('signup_grant', 'purchase_grant', 'image_debit', 'video_debit'))",
		"CHECK (amount <> 0)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matches %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
