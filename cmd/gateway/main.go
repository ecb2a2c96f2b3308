// Command gateway runs the Main Gateway as a standalone HTTP service: the
// sole externally-facing actor, owning per-caller transaction identity and
// forwarding every decoded action to the currently-configured Logic
// Coordinator. See internal/gateway.
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

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/gateway"
	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// config is this binary's optional YAML file shape. LogicBinary is the
// path to a compiled cmd/logic executable, used only by
// UpdateLogicContract when an admin rotates to a fresh coordinator.
type config struct {
	Listen      string `yaml:"listen"`
	LogicAddr   string `yaml:"logic_addr"`
	LogicID     string `yaml:"logic_id"`
	Admin       string `yaml:"admin"`
	LogicBinary string `yaml:"logic_binary"`
	ClearDelay  string `yaml:"clear_delay"`
}

func main() {
	var (
		cfgPath     string
		listen      string
		logicAddr   string
		logicIDHex  string
		adminHex    string
		logicBinary string
		clearDelay  string
		logLvl      string
	)

	root := &cobra.Command{
		Use:   "gateway",
		Short: "Run the Main Gateway of the sharded fungible-token ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config{
				Listen: listen, LogicAddr: logicAddr, LogicID: logicIDHex,
				Admin: adminHex, LogicBinary: logicBinary, ClearDelay: clearDelay,
			}
			if cfgPath != "" {
				if err := loadConfig(cfgPath, &cfg); err != nil {
					return err
				}
			}
			if cfg.Listen == "" {
				cfg.Listen = getenv("GATEWAY_LISTEN", ":8080")
			}
			if cfg.LogicAddr == "" {
				cfg.LogicAddr = getenv("GATEWAY_LOGIC_ADDR", "")
			}
			if cfg.LogicID == "" {
				cfg.LogicID = getenv("GATEWAY_LOGIC_ID", "")
			}
			if cfg.Admin == "" {
				cfg.Admin = getenv("GATEWAY_ADMIN", "")
			}
			if cfg.LogicBinary == "" {
				cfg.LogicBinary = getenv("GATEWAY_LOGIC_BINARY", "./logic")
			}
			if cfg.ClearDelay == "" {
				cfg.ClearDelay = getenv("GATEWAY_CLEAR_DELAY", gateway.DefaultClearDelay.String())
			}

			logicID, err := wire.AccountFromHex(cfg.LogicID)
			if err != nil {
				return fmt.Errorf("parse --logic-id: %w", err)
			}
			admin, err := wire.AccountFromHex(cfg.Admin)
			if err != nil {
				return fmt.Errorf("parse --admin: %w", err)
			}
			delay, err := time.ParseDuration(cfg.ClearDelay)
			if err != nil {
				return fmt.Errorf("parse --clear-delay: %w", err)
			}
			if cfg.LogicAddr == "" {
				return fmt.Errorf("--logic-addr is required")
			}

			log := newLogger(logLvl)
			spawner := &gateway.ProcessLogicSpawner{BinaryPath: cfg.LogicBinary, Log: log.WithField("actor", "gateway")}
			gw := gateway.NewServer(cfg.LogicAddr, logicID, admin, spawner, delay, log.WithField("actor", "gateway"))

			srv := &http.Server{
				Addr:              cfg.Listen,
				Handler:           gw,
				ReadHeaderTimeout: 5 * time.Second,
			}
			return runAndWaitForShutdown(srv, log)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfgPath, "config", "", "optional YAML config file")
	flags.StringVar(&listen, "listen", "", "address to listen on (default :8080)")
	flags.StringVar(&logicAddr, "logic-addr", "", "base URL of the initial Logic Coordinator (required)")
	flags.StringVar(&logicIDHex, "logic-id", "", "hex account identity of the initial Logic Coordinator (required)")
	flags.StringVar(&adminHex, "admin", "", "hex account identity allowed to call UpdateLogicContract (required)")
	flags.StringVar(&logicBinary, "logic-binary", "", "path to the cmd/logic binary used by UpdateLogicContract (default ./logic)")
	flags.StringVar(&clearDelay, "clear-delay", "", "delay between a transaction first reaching the gateway and its gateway record being cleared")
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
	if cfg.LogicAddr == "" {
		cfg.LogicAddr = fileCfg.LogicAddr
	}
	if cfg.LogicID == "" {
		cfg.LogicID = fileCfg.LogicID
	}
	if cfg.Admin == "" {
		cfg.Admin = fileCfg.Admin
	}
	if cfg.LogicBinary == "" {
		cfg.LogicBinary = fileCfg.LogicBinary
	}
	if cfg.ClearDelay == "" {
		cfg.ClearDelay = fileCfg.ClearDelay
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
