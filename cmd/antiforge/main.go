package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/antiforge/internal/config"
	"github.com/dropDatabas3/antiforge/internal/security/password"
	tokens "github.com/dropDatabas3/antiforge/internal/security/token"
	"github.com/dropDatabas3/antiforge/internal/store"
	"github.com/dropDatabas3/antiforge/internal/store/pg"
)

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "antiforge",
		Short: "Utilidades operativas para el servicio antiforge",
	}

	// token: genera un token opaco (mismo formato que los tokens anti-forgery)
	var tokenBytes int
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Genera un token opaco aleatorio (base64url)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenBytes <= 0 {
				return fmt.Errorf("--bytes debe ser > 0")
			}
			t, err := tokens.GenerateOpaqueToken(tokenBytes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}
	tokenCmd.Flags().IntVar(&tokenBytes, "bytes", 32, "Bytes de entropía del token")

	// hash: argon2id para sembrar usuarios a mano
	hashCmd := &cobra.Command{
		Use:   "hash <password>",
		Short: "Genera un hash argon2id de una contraseña",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := password.Hash(password.Default, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}

	// user create: alta directa en el user store (seed de cuentas)
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Operaciones sobre el user store",
	}
	var createEmail, createPassword, createDSN string
	userCreateCmd := &cobra.Command{
		Use:   "create",
		Short: "Crea un usuario con password argon2id",
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(strings.ToLower(createEmail))
			if email == "" {
				return fmt.Errorf("--email es requerido")
			}
			if createPassword == "" {
				return fmt.Errorf("--password es requerido")
			}
			if createDSN == "" {
				return fmt.Errorf("falta DSN (flag --dsn o env STORAGE_DSN)")
			}

			phc, err := password.Hash(password.Default, createPassword)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			repo, err := pg.New(ctx, createDSN)
			if err != nil {
				return err
			}
			defer repo.Close()

			u := &store.User{ID: uuid.NewString(), Email: email, PasswordHash: phc}
			if err := repo.Create(ctx, u); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u.ID)
			return nil
		},
	}
	userCreateCmd.Flags().StringVar(&createEmail, "email", "", "Email del usuario")
	userCreateCmd.Flags().StringVar(&createPassword, "password", "", "Password en claro (se hashea)")
	userCreateCmd.Flags().StringVar(&createDSN, "dsn", envOr("STORAGE_DSN", ""), "DSN de Postgres (env STORAGE_DSN)")
	userCmd.AddCommand(userCreateCmd)

	// config check: carga y valida el YAML sin arrancar el servicio
	var cfgPath string
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Operaciones sobre la configuración",
	}
	configCheckCmd := &cobra.Command{
		Use:   "check",
		Short: "Valida el archivo de configuración",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("config inválida: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: env=%s addr=%s cache=%s\n", cfg.App.Env, cfg.Server.Addr, cfg.Cache.Driver)
			return nil
		},
	}
	configCheckCmd.Flags().StringVar(&cfgPath, "config", envOr("CONFIG_PATH", "config.yaml"), "Ruta del archivo de configuración")
	configCmd.AddCommand(configCheckCmd)

	// ping: health check contra una instancia corriendo
	var pingURL string
	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Health check contra una instancia del servicio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := &http.Client{Timeout: 10 * time.Second}
			resp, err := cl.Get(strings.TrimRight(pingURL, "/") + "/readyz")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("ping fallo: status=%d body=%s", resp.StatusCode, string(body))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	pingCmd.Flags().StringVar(&pingURL, "url", envOr("ANTIFORGE_URL", "http://localhost:8080"), "URL base del servicio (env ANTIFORGE_URL)")

	root.AddCommand(tokenCmd, hashCmd, userCmd, configCmd, pingCmd)
	return root
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
