package main

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/johncui/hydrogpt/pkg/config"
)

func TestNewApp(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "app.db")
	cfg.Engine.Seed = 7
	cfg.Engine.SearchDelay = 0
	cfg.Engine.SearchJitter = time.Millisecond

	a, err := newApp(ctx, cfg, io.Discard)
	gt.NoError(t, err).Required()

	reply, err := a.chats.Send(ctx, "", "calculate 6 * 7")
	gt.NoError(t, err).Required()
	gt.String(t, reply.Text).Contains("`42`")
	gt.Array(t, a.engine.Interactions()).Length(1)
	gt.NoError(t, a.Close()).Required()

	// state survives a restart on the same database
	a, err = newApp(ctx, cfg, io.Discard)
	gt.NoError(t, err).Required()
	defer a.Close()
	gt.Array(t, a.chats.List()).Length(1)
	gt.Array(t, a.engine.History(reply.ChatID)).Length(1)
}

func TestNewApp_BadLogFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "memory"
	cfg.Log.Format = "xml"

	_, err := newApp(context.Background(), cfg, io.Discard)
	gt.Error(t, err)
}
