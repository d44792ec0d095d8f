package commands

import (
	"context"
	"fmt"

	"github.com/rpattn/crmdash/internal/auth"
	"github.com/rpattn/crmdash/internal/domain"
)

type TokenCmd struct {
	ActorID int64  `arg:"" help:"Actor id placed in the token subject."`
	Name    string `help:"Actor display name." default:""`
}

func (t *TokenCmd) Run(ctx context.Context, globals *Globals) error {
	_, cfg, _, err := globals.setup(ctx)
	if err != nil {
		return err
	}
	if t.ActorID <= 0 {
		return fmt.Errorf("actor id must be positive")
	}
	tokens, err := auth.NewTokens(cfg.Auth.SessionSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	token, err := tokens.Issue(domain.Actor{ID: t.ActorID, Name: t.Name})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
