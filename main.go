package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/lumenlabs/relayr/app"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger"
	"github.com/lumenlabs/relayr/pkg/nostr/relayinfo"
	"github.com/lumenlabs/relayr/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

var args app.Config

func main() {
	arg.MustParse(&args)
	slog.SetLogLevelString(args.LogLevel)
	var err error
	var dataDirBase string
	if dataDirBase, err = os.UserHomeDir(); chk.E(err) {
		os.Exit(1)
	}
	dataDir := filepath.Join(dataDirBase, "."+args.Profile)
	log.D.F("using profile directory: %s", dataDir)
	db := badger.GetBackend(filepath.Join(dataDir, "events"))
	db.MaxLimit = args.MaxLimit
	if err = db.Init(); chk.E(err) {
		log.E.F("unable to open database: %s", err)
		os.Exit(1)
	}
	defer db.Close()
	c, cancel := context.WithCancel(context.Background())
	defer cancel()
	switch {
	case args.ExportCmd != nil:
		exportDB(c, db, args.ExportCmd)
	case args.ImportCmd != nil:
		importDB(c, db, args.ImportCmd)
	case args.WipeCmd != nil:
		chk.F(db.Wipe())
		log.I.Ln("database wiped")
	default:
		serve(c, cancel, db)
	}
}

func serve(c context.Context, cancel context.CancelFunc, db *badger.Backend) {
	inf := relayinfo.NewInfo(args.Name, args.Description, args.Pubkey,
		args.Contact, args.Icon, relayinfo.Limits{
			MaxMessageLength:     app.MaxMessageSize,
			MaxSubscriptions:     args.MaxSubs,
			MaxFilters:           args.MaxFilters,
			MaxLimit:             args.MaxLimit,
			MaxSubidLength:       64,
			CreatedAtUpperOffset: 900,
		})
	rl := app.NewRelay(c, cancel, inf, &args)
	rl.StoreEvent = append(rl.StoreEvent, db.SaveEvent)
	rl.ReplaceEvent = append(rl.ReplaceEvent, db.SaveReplaceable)
	rl.QueryEvents = append(rl.QueryEvents, db.QueryEvents)
	rl.CountEvents = append(rl.CountEvents, db.CountEvents)
	rl.DeleteEvent = append(rl.DeleteEvent, db.DeleteEvent)
	rl.RejectEvent = append(rl.RejectEvent,
		app.RejectFutureEvents(inf.Limitation.CreatedAtUpperOffset))
	rl.OverwriteFilter = append(rl.OverwriteFilter,
		app.ClampFilterLimit(args.MaxLimit))
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		log.I.Ln("shutting down")
		rl.Shutdown(c)
		cancel()
	}()
	chk.E(rl.Start(args.Listen))
}

func exportDB(c context.Context, db *badger.Backend, cmd *app.ExportCmd) {
	var w io.Writer = os.Stdout
	if cmd.ToFile != "" {
		f, err := os.Create(cmd.ToFile)
		if chk.F(err) {
			return
		}
		defer f.Close()
		w = f
	}
	chk.F(db.Export(c, w))
}

func importDB(c context.Context, db *badger.Backend, cmd *app.ImportCmd) {
	if len(cmd.FromFile) == 0 {
		n, err := db.Import(c, os.Stdin)
		chk.F(err)
		log.I.F("imported %d events from stdin", n)
		return
	}
	for _, name := range cmd.FromFile {
		f, err := os.Open(name)
		if chk.E(err) {
			continue
		}
		n, err := db.Import(c, f)
		chk.E(err)
		chk.E(f.Close())
		log.I.F("imported %d events from %s", n, name)
	}
}
