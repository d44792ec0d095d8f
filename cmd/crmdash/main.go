package main

import (
	"context"

	"github.com/rpattn/crmdash/cmd/crmdash/internal/commands"

	"github.com/alecthomas/kong"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool             `help:"Enable debug logging."`
		Config  string           `help:"Directory containing config.yaml." default:"." type:"path"`
		Version kong.VersionFlag `help:"Print the version."`

		Serve   commands.ServeCmd   `cmd:"" help:"Run the HTTP API."`
		Migrate commands.MigrateCmd `cmd:"" help:"Apply or roll back database migrations."`
		Import  commands.ImportCmd  `cmd:"" help:"Import a spreadsheet from the local filesystem."`
		Token   commands.TokenCmd   `cmd:"" help:"Mint a session token for an actor."`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("crmdash"),
		kong.Description("CRM dashboard API and import tooling."),
		kong.Vars{"version": version},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, ConfigDir: cli.Config, Version: version})
	cmd.FatalIfErrorf(err)
}
