package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/gatekit/internal/config"
	migrations "github.com/dropDatabas3/gatekit/migrations/postgres"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down] [steps]",
		Short: "Aplica las migraciones embebidas de PostgreSQL",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			steps := 0
			if len(args) >= 1 && args[0] != "" {
				action = strings.ToLower(args[0])
			}
			if len(args) >= 2 {
				if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
					steps = n
				}
			}
			return runMigrate(cmd, *configPath, action, steps)
		},
	}
}

func runMigrate(cmd *cobra.Command, configPath, action string, steps int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Storage.DSN == "" {
		return fmt.Errorf("migrate: storage.dsn no configurado")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("pgxpool: %w", err)
	}
	defer pool.Close()

	switch action {
	case "up":
		files, err := listEmbeddedSQL("_up.sql")
		if err != nil {
			return err
		}
		if steps > 0 && steps < len(files) {
			files = files[:steps]
		}
		cmd.Printf("Aplicando %d migración(es) up...\n", len(files))
		for _, f := range files {
			if err := execEmbeddedSQL(ctx, cmd, pool, f); err != nil {
				return fmt.Errorf("exec %s: %w", f, err)
			}
		}
		cmd.Println("Migraciones up completadas.")

	case "down":
		files, err := listEmbeddedSQL("_down.sql")
		if err != nil {
			return err
		}
		// los downs corren en orden inverso
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
		if steps > 0 && steps < len(files) {
			files = files[:steps]
		}
		cmd.Printf("Aplicando %d migración(es) down...\n", len(files))
		for _, f := range files {
			if err := execEmbeddedSQL(ctx, cmd, pool, f); err != nil {
				return fmt.Errorf("exec %s: %w", f, err)
			}
		}
		cmd.Println("Migraciones down completadas.")

	default:
		return fmt.Errorf("acción desconocida %q; usar: up | down [steps]", action)
	}
	return nil
}

func listEmbeddedSQL(suffix string) ([]string, error) {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func execEmbeddedSQL(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool, name string) error {
	b, err := migrations.FS.ReadFile(name)
	if err != nil {
		return err
	}
	start := time.Now()
	if _, err := pool.Exec(ctx, string(b)); err != nil {
		return err
	}
	cmd.Printf("OK %s (%s)\n", name, time.Since(start).Truncate(time.Millisecond))
	return nil
}
