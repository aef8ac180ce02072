package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"podmix/pkg/cache"
	"podmix/pkg/fetch"
	"podmix/pkg/history"
)

type Opts struct {
	Config string `long:"config" short:"c" default:"podmix.toml" env:"PODMIX_CONFIG_PATH" description:"application configuration file"`
	Debug  bool   `long:"debug" description:"enable debug logging"`
	Quiet  bool   `long:"quiet" description:"log warnings and errors only"`
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// App carries what every command needs: the parsed configuration, the
// shared throttled HTTP client and a signal-cancelled context.
type App struct {
	ctx    context.Context
	cfg    *Config
	client *fetch.Client
}

func (a *App) openCache() (*cache.Cache, error) {
	c, err := cache.New(a.cfg.DataDir, a.client)
	if err != nil {
		return nil, err
	}

	c.ApplyTags = a.cfg.ApplyTags
	return c, nil
}

func (a *App) loadHistory() (*history.History, error) {
	return history.Load(a.cfg.HistoryFile)
}

func main() {
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-stop
		log.Info("stopping")
		cancel()
	}()

	app := &App{ctx: ctx}

	opts := Opts{}
	parser := flags.NewParser(&opts, flags.Default)

	commands := []struct {
		name  string
		short string
		cmd   flags.Commander
	}{
		{"ingest", "register feeds from an ingest file", &ingestCommand{app: app}},
		{"list", "list catalogued feeds", &listCommand{app: app}},
		{"refresh", "re-fetch feed records from upstream", &refreshCommand{app: app}},
		{"update", "download episodes into the cache", &updateCommand{app: app}},
		{"skip", "mark episodes as deliberately not downloaded", &skipCommand{app: app}},
		{"clean", "remove catalog entries whose files are gone", &cleanCommand{app: app}},
		{"import", "register pre-existing audio files by their tags", &importCommand{app: app}},
		{"import-history", "merge a Podcast Addict backup into the listening history", &importHistoryCommand{app: app}},
		{"playlist", "generate a playlist from catalogued feeds", &playlistCommand{app: app}},
		{"serve", "serve the data directory over HTTP", &serveCommand{app: app}},
	}

	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, "", c.cmd); err != nil {
			log.WithError(err).Fatalf("failed to register command %q", c.name)
		}
	}

	// Global flags are parsed before the command runs, so logging and
	// configuration are set up here rather than in main's prologue
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		switch {
		case opts.Debug:
			log.SetLevel(log.DebugLevel)
		case opts.Quiet:
			log.SetLevel(log.WarnLevel)
		}

		log.WithFields(log.Fields{
			"version": version,
			"commit":  commit,
			"date":    date,
		}).Debug("running podmix")

		cfg, err := LoadConfig(opts.Config)
		if err != nil {
			return err
		}

		app.cfg = cfg
		app.client = fetch.New(cfg.UserAgent, cfg.FetchDelay.Duration)

		return command.Execute(args)
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return
			}
			os.Exit(1)
		}

		log.WithError(err).Fatal("command failed")
	}
}
