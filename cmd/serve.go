package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"specado/internal/cache"
	"specado/internal/config"
	"specado/internal/logging"
	"specado/internal/server"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var overridePort int

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP translate/validate server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath == "" {
				return fmt.Errorf("serve requires --config <path>")
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			if overridePort != 0 {
				if overridePort <= 0 || overridePort > 65535 {
					return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
				}
				cfg.Server.Port = overridePort
			}

			logging.Setup(cmd.ErrOrStderr(), logging.Level(cfg.Logging.Level))

			specCache, err := cache.New(cache.Config{
				Backend:  cfg.Cache.Backend,
				LRUSize:  cfg.EffectiveLRUSize(),
				RedisURL: cfg.Cache.RedisURL,
			})
			if err != nil {
				return fmt.Errorf("build spec cache: %w", err)
			}
			defer specCache.Close()

			srv, err := server.New(cfg, specCache)
			if err != nil {
				return err
			}

			return srv.Run(cmd.Context())
		},
	}

	c.Flags().StringVar(&cfgPath, "config", "", "path to configuration file")
	c.Flags().IntVar(&overridePort, "port", 0, "override server port from configuration")

	return c
}
