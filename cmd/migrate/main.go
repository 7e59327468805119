package main

import (
	"bufio"
	"database/sql"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"auction/internal/config"
	"auction/internal/db"
	"auction/internal/logger"

	"github.com/jmoiron/sqlx"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding NNN_name.sql files")
	down := flag.Bool("down", false, "roll back the most recent migration")
	flag.Parse()

	cfg := config.Load()
	logger.Setup(cfg.LogLevel)
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect database", map[string]any{"error": err.Error()})
	}
	defer database.Close()

	if _, err := database.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (filename text primary key, applied_at timestamptz default now())`); err != nil {
		logger.Fatal("failed to ensure schema_migrations", map[string]any{"error": err.Error()})
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		logger.Fatal("failed to read migrations", map[string]any{"error": err.Error()})
	}
	sort.Strings(files)

	if *down {
		rollbackLatest(database, files)
		return
	}

	for _, file := range files {
		filename := filepath.Base(file)
		var exists bool
		if err := database.Get(&exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			logger.Fatal("failed to read migration state", map[string]any{"error": err.Error()})
		}
		if exists {
			continue
		}
		if err := applyFile(database, file, false); err != nil {
			logger.Fatal("failed to apply migration", map[string]any{"file": filename, "error": err.Error()})
		}
		if _, err := database.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			logger.Fatal("failed to record migration", map[string]any{"file": filename, "error": err.Error()})
		}
		logger.Info("applied migration", map[string]any{"file": filename})
	}
}

func rollbackLatest(database *sqlx.DB, files []string) {
	var latest string
	err := database.Get(&latest, `SELECT filename FROM schema_migrations ORDER BY filename DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Info("nothing to roll back", nil)
		return
	}
	if err != nil {
		logger.Fatal("failed to read migration state", map[string]any{"error": err.Error()})
	}
	for _, file := range files {
		if filepath.Base(file) != latest {
			continue
		}
		if err := applyFile(database, file, true); err != nil {
			logger.Fatal("failed to roll back migration", map[string]any{"file": latest, "error": err.Error()})
		}
		if _, err := database.Exec(`DELETE FROM schema_migrations WHERE filename = $1`, latest); err != nil {
			logger.Fatal("failed to forget migration", map[string]any{"file": latest, "error": err.Error()})
		}
		logger.Info("rolled back migration", map[string]any{"file": latest})
		return
	}
	logger.Fatal("applied migration file is missing", map[string]any{"file": latest})
}

// applyFile runs the Up section of a migration, or the Down section when down is set.
func applyFile(db execer, path string, down bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	up, downSection, _ := strings.Cut(string(content), "-- +migrate Down")
	section := up
	if down {
		section = downSection
	}
	statements := splitSQL(section)
	for _, stmt := range statements {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func splitSQL(sqlText string) []string {
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(sqlText))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.Contains(line, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
