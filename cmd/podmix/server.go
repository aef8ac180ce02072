package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	http.Server
}

func NewServer(cfg *Config) *Server {
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}

	bindAddress := cfg.Server.BindAddress
	if bindAddress == "*" {
		bindAddress = ""
	}

	srv := Server{}
	srv.Addr = fmt.Sprintf("%s:%d", bindAddress, port)
	srv.Handler = http.FileServer(http.Dir(cfg.DataDir))

	return &srv
}

type serveCommand struct {
	app             *App
	RefreshSchedule string `long:"refresh-schedule" description:"cron expression for periodic feed refresh"`
}

func (cmd *serveCommand) Execute([]string) error {
	c, err := cmd.app.openCache()
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(cmd.app.ctx)

	srv := NewServer(cmd.app.cfg)

	group.Go(func() error {
		log.Infof("running listener at %s", srv.Addr)
		return srv.ListenAndServe()
	})

	group.Go(func() error {
		<-ctx.Done()

		log.Info("shutting down web server")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.WithError(err).Error("server shutdown failed")
		}

		return ctx.Err()
	})

	if cmd.RefreshSchedule != "" {
		cr := cron.New(cron.WithChain(cron.SkipIfStillRunning(nil)))

		if _, err := cr.AddFunc(cmd.RefreshSchedule, func() {
			log.Debug("refreshing catalogued feeds")
			if err := c.Refresh(ctx, nil); err != nil {
				log.WithError(err).Error("feed refresh failed")
			}
		}); err != nil {
			return errors.Wrapf(err, "invalid schedule %q", cmd.RefreshSchedule)
		}

		group.Go(func() error {
			defer func() {
				log.Info("shutting down cron")
				cr.Stop()
			}()

			cr.Start()
			<-ctx.Done()
			return ctx.Err()
		})
	}

	if err := group.Wait(); err != nil && err != context.Canceled && err != http.ErrServerClosed {
		return err
	}

	log.Info("gracefully stopped")
	return nil
}
