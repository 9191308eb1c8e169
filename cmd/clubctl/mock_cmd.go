package main

import (
	"context"
	"fmt"

	"clubhub-go/internal/config"
	"clubhub-go/internal/events"
	"clubhub-go/internal/logging"
	"clubhub-go/internal/mockapi"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newMockServerCmd(a *app) *cobra.Command {
	var addr string
	var failRefresh bool
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a local stand-in for the club backend's auth API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Mock.Addr
			}
			opts := mockapi.OptionsFromConfig(a.cfg.Mock)
			opts.Debug = a.cfg.Log.Debug
			srv, err := mockapi.New(opts)
			if err != nil {
				return err
			}
			srv.SetFailRefresh(failRefresh)

			if a.configPath != "" {
				stop, err := watchConfig(a.configPath, cmd)
				if err != nil {
					log.WithError(err).Warn("config hot reload disabled")
				} else {
					defer stop()
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "mock backend on %s (seed users %s, %s, %s)\n",
				addr, mockapi.AdminEmail, mockapi.CoachEmail, mockapi.PlayerEmail)
			return srv.Run(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to mock.addr)")
	cmd.Flags().BoolVar(&failRefresh, "fail-refresh", false, "Reject every refresh call")
	return cmd
}

// watchConfig re-applies logging settings whenever the config file changes.
func watchConfig(path string, cmd *cobra.Command) (func(), error) {
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}
	hub := events.NewHub()
	mgr.SetEventPublisher(hub)
	unsubscribe := hub.Subscribe(events.TopicConfigUpdated, func(_ context.Context, ev events.Event) {
		log.WithField("topic", ev.Topic).Debug("config event")
	})
	mgr.OnChange(func(cfg *config.Config) {
		if err := logging.SetupTo(cmd.ErrOrStderr(), cfg); err != nil {
			log.WithError(err).Warn("failed to apply reloaded logging config")
		}
	})
	return func() {
		unsubscribe()
		mgr.Close()
	}, nil
}
