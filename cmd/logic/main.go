// Command logic runs a Logic Coordinator as a standalone HTTP service: the
// middle tier that owns the shard directory and drives the mint/burn/
// transfer/approve/permit sub-protocols described in internal/logic.
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

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/logic"
	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// config is this binary's optional YAML file shape; StorageBinary is the
// path to a compiled cmd/storage executable, this rendition's stand-in for
// the on-chain storage_code identity the original forwards to
// UpdateLogicContract/instantiate calls.
type config struct {
	Listen        string `yaml:"listen"`
	LogicID       string `yaml:"logic_id"`
	StorageBinary string `yaml:"storage_binary"`
}

func main() {
	var (
		cfgPath           string
		listen            string
		logicIDHex        string
		storageBinary     string
		logLvl            string
		skipPermitSigning bool
	)

	root := &cobra.Command{
		Use:   "logic",
		Short: "Run the Logic Coordinator of the sharded fungible-token ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config{Listen: listen, LogicID: logicIDHex, StorageBinary: storageBinary}
			if cfgPath != "" {
				if err := loadConfig(cfgPath, &cfg); err != nil {
					return err
				}
			}
			if cfg.Listen == "" {
				cfg.Listen = getenv("LOGIC_LISTEN", ":8081")
			}
			if cfg.LogicID == "" {
				cfg.LogicID = getenv("LOGIC_ID", "")
			}
			if cfg.StorageBinary == "" {
				cfg.StorageBinary = getenv("LOGIC_STORAGE_BINARY", "./storage")
			}

			logicID, err := wire.AccountFromHex(cfg.LogicID)
			if err != nil {
				return fmt.Errorf("parse --logic-id: %w", err)
			}

			log := newLogger(logLvl)
			spawner := &logic.ProcessSpawner{BinaryPath: cfg.StorageBinary, Log: log.WithField("actor", "logic")}
			dir := logic.NewShardDirectory(spawner, logicID)

			var verify logic.PermitVerifier
			if !skipPermitSigning {
				verify = logic.VerifyEd25519Permit
			}
			engine := logic.NewEngine(logicID, dir, verify)

			srv := &http.Server{
				Addr:              cfg.Listen,
				Handler:           logic.NewServer(engine, log.WithField("actor", "logic")),
				ReadHeaderTimeout: 5 * time.Second,
			}
			return runAndWaitForShutdown(srv, log)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfgPath, "config", "", "optional YAML config file")
	flags.StringVar(&listen, "listen", "", "address to listen on (default :8081)")
	flags.StringVar(&logicIDHex, "logic-id", "", "this coordinator's own hex account identity (required)")
	flags.StringVar(&storageBinary, "storage-code", "", "path to the cmd/storage binary spawned for new shards (default ./storage)")
	flags.StringVar(&logLvl, "log-level", "info", "logrus level")
	flags.BoolVar(&skipPermitSigning, "insecure-skip-permit-signature", false, "accept every Permit regardless of its signature (testing only)")

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
	if cfg.StorageBinary == "" {
		cfg.StorageBinary = fileCfg.StorageBinary
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
