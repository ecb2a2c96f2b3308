// Command storage runs a single Storage Shard as a standalone HTTP service:
// the leaf tier of the ledger, holding balances, allowances and permit
// nonces for whichever bucket the Logic Coordinator that spawned it
// assigned to this instance. See internal/storageshard for the primitive
// mutations it serves.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/storageshard"
	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// config is the optional YAML file shape for this binary; every field can
// also be set by flag or by the matching STORAGE_* environment variable,
// in that order of precedence.
type config struct {
	Listen  string `yaml:"listen"`
	LogicID string `yaml:"logic_id"`
}

func main() {
	var (
		cfgPath string
		listen  string
		logicID string
		shardID string
		logLvl  string
	)

	root := &cobra.Command{
		Use:   "storage",
		Short: "Run a single Storage Shard of the sharded fungible-token ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config{Listen: listen, LogicID: logicID}
			if cfgPath != "" {
				if err := loadConfig(cfgPath, &cfg); err != nil {
					return err
				}
			}
			if cfg.Listen == "" {
				cfg.Listen = getenv("STORAGE_LISTEN", ":8082")
			}
			if cfg.LogicID == "" {
				cfg.LogicID = getenv("STORAGE_LOGIC_ID", "")
			}

			logic, err := wire.AccountFromHex(cfg.LogicID)
			if err != nil {
				return fmt.Errorf("parse --logic-id: %w", err)
			}

			log := newLogger(logLvl)
			if shardID != "" {
				log = log.WithField("shard_id", shardID)
			}
			shard := storageshard.New(logic)
			srv := &http.Server{
				Addr:              cfg.Listen,
				Handler:           storageshard.NewServer(shard, log.WithField("actor", "storage")),
				ReadHeaderTimeout: 5 * time.Second,
			}
			return runAndWaitForShutdown(srv, log)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfgPath, "config", "", "optional YAML config file")
	flags.StringVar(&listen, "listen", "", "address to listen on (default :8082)")
	flags.StringVar(&logicID, "logic-id", "", "hex account identity of the owning Logic Coordinator (required)")
	flags.StringVar(&shardID, "shard-id", "", "instance id assigned by the spawning Logic Coordinator, for logging only")
	flags.StringVar(&logLvl, "log-level", "info", "logrus level")

	if err := root.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func loadConfig(path string, cfg *config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fileCfg config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Listen == "" {
		cfg.Listen = fileCfg.Listen
	}
	if cfg.LogicID == "" {
		cfg.LogicID = fileCfg.LogicID
	}
	return nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func newLogger(level string) *logrus.Entry {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return logrus.NewEntry(log)
}

// runAndWaitForShutdown starts srv in the background and blocks until
// SIGINT/SIGTERM, then drains in-flight requests before returning.
func runAndWaitForShutdown(srv *http.Server, log *logrus.Entry) error {
	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("stopped")
	return nil
}
