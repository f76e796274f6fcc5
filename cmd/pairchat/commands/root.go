package commands

import (
	"os"

	"github.com/spf13/cobra"

	"pairchat/internal/app"
)

var (
	envFile  string
	home     string
	relayURL string
	password string
	logLevel string
	logJSON  bool
	minBits  float64

	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:           "pairchat",
		Short:         "Two-party end-to-end encrypted chat over an untrusted relay",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(envFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("home") {
				cfg.Home = home
			}
			if flags.Changed("relay") {
				cfg.RelayURL = relayURL
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("log-json") {
				cfg.LogJSON = logJSON
			}
			if flags.Changed("min-entropy") {
				cfg.MinEntropy = minBits
			}

			log, err := app.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogJSON)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
				return err
			}
			wire, err = app.NewWire(cfg, log)
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&envFile, "env-file", "", "dotenv file to load (default .env if present)")
	pf.StringVar(&home, "home", "", "key store dir (default ~/.pairchat)")
	pf.StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	pf.StringVarP(&password, "password", "p", "", "password protecting private keys")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&logJSON, "log-json", false, "log JSON lines instead of console output")
	pf.Float64Var(&minBits, "min-entropy", 0, "minimum password entropy in bits, 0 disables")

	root.AddCommand(chatCmd(), keywrapCmd(), unwrapCmd(), fingerprintCmd(), demoCmd())
	return root.Execute()
}
