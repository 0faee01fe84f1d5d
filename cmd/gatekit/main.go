// gatekit es el binario único del servicio: servidor HTTP, migraciones y
// limpieza de registros vencidos como subcomandos.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version se inyecta en build via -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	var (
		configPath string
		envFile    string
	)

	root := &cobra.Command{
		Use:           "gatekit",
		Short:         "Puente de autenticación para CLIs (OAuth → sesión → API keys)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env es opcional; las env vars pisan al YAML en config.Load
			_ = godotenv.Load(envFile)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path al YAML de configuración (vacío = defaults + env)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path al archivo .env (opcional)")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newSweepCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Imprime la versión",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(Version)
			},
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
