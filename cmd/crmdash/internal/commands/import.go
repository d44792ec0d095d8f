package commands

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/ingestion"
)

type ImportCmd struct {
	File      string `arg:"" help:"Spreadsheet to import (.xlsx or .csv)." type:"existingfile"`
	Type      string `help:"Data type: customer, subsidiary, opportunity, deal, news, project or recommendation." required:""`
	ActorID   int64  `help:"Actor recorded on the import job." default:"1"`
	ActorName string `help:"Actor display name." default:"cli"`
}

func (c *ImportCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, cfg, _, err := globals.setup(ctx)
	if err != nil {
		return err
	}
	dataType, err := domain.ParseDataType(c.Type)
	if err != nil {
		return err
	}
	payload, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}

	conn, err := connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	result, err := newRepositories(conn.Pool).importer(cfg.Import.Limits()).Import(ctx, ingestion.Request{
		DataType:   dataType,
		FileName:   filepath.Base(c.File),
		FileBase64: base64.StdEncoding.EncodeToString(payload),
		Actor:      domain.Actor{ID: c.ActorID, Name: c.ActorName},
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
