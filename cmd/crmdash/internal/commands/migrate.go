package commands

import (
	"context"
	"fmt"

	"github.com/rpattn/crmdash/internal/db"
)

type MigrateCmd struct {
	Down    int  `help:"Roll back this many migrations instead of applying."`
	Status  bool `help:"Print the current schema version and exit."`
}

func (m *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	_, cfg, log, err := globals.setup(ctx)
	if err != nil {
		return err
	}

	switch {
	case m.Status:
		version, dirty, err := db.MigrationVersion(cfg.Database)
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return nil
	case m.Down > 0:
		if err := db.RollbackMigrations(cfg.Database, m.Down); err != nil {
			return err
		}
		log.Info().Int("steps", m.Down).Msg("migrations rolled back")
		return nil
	}

	if err := db.RunMigrations(cfg.Database); err != nil {
		return err
	}
	log.Info().Msg("migrations applied")
	return nil
}
