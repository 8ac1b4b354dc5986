package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/signroom/internal/attachments"
	"github.com/MarcoPoloResearchLab/signroom/internal/auth"
	"github.com/MarcoPoloResearchLab/signroom/internal/config"
	"github.com/MarcoPoloResearchLab/signroom/internal/contracts"
	"github.com/MarcoPoloResearchLab/signroom/internal/database"
	"github.com/MarcoPoloResearchLab/signroom/internal/drafting"
	"github.com/MarcoPoloResearchLab/signroom/internal/logging"
	"github.com/MarcoPoloResearchLab/signroom/internal/notify"
	"github.com/MarcoPoloResearchLab/signroom/internal/server"
	"github.com/MarcoPoloResearchLab/signroom/internal/users"
	"github.com/MarcoPoloResearchLab/signroom/internal/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "signroom-api",
		Short: "Signroom contract signing service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newIssueTokenCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Session token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")
	cmd.PersistentFlags().Bool("seed-demo", defaults.GetBool("contracts.seed_demo"), "Load the demo contracts at startup")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "contracts.seed_demo", "seed-demo")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func newIssueTokenCommand() *cobra.Command {
	var (
		userID      string
		email       string
		displayName string
	)
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Print a session token for a participant",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
				SigningSecret: []byte(appConfig.AuthSigningSecret),
				Issuer:        appConfig.AuthIssuer,
				TokenTTL:      appConfig.AuthTokenTTL,
			})
			if err != nil {
				return err
			}
			token, expiresAt, err := issuer.Issue(auth.Identity{UserID: userID, Email: email, DisplayName: displayName})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", contracts.DemoParticipant.ID, "Participant id")
	cmd.Flags().StringVar(&email, "email", contracts.DemoParticipant.Email, "Participant email")
	cmd.Flags().StringVar(&displayName, "name", contracts.DemoParticipant.Name, "Participant display name")
	return cmd
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	sessions, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(appConfig.AuthSigningSecret),
		Issuer:        appConfig.AuthIssuer,
		CookieName:    appConfig.AuthCookieName,
	})
	if err != nil {
		return err
	}

	participants, err := users.NewService(users.ServiceConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	outbox, err := notify.NewOutboxSender(notify.OutboxConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	hub := notify.NewHub()
	dispatcher, err := notify.NewAsyncDispatcher(notify.AsyncConfig{
		Sender: outbox,
		Hub:    hub,
		Delay:  appConfig.NotifyDelay,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer dispatcher.Wait()

	generator := drafting.NewGeminiGenerator(drafting.GeminiConfig{
		APIKey:            appConfig.DraftingAPIKey,
		BaseURL:           appConfig.DraftingBaseURL,
		Model:             appConfig.DraftingModel,
		RequestsPerMinute: appConfig.DraftingRequestsPerMinute,
		Logger:            logger,
	})

	store := contracts.NewStore()
	if appConfig.SeedDemo {
		if err := contracts.Seed(store); err != nil {
			return err
		}
		logger.Info("demo contracts loaded", zap.Int("count", len(store.List())))
	}

	workflowService, err := workflow.NewService(workflow.ServiceConfig{
		Store:           store,
		Dispatcher:      dispatcher,
		Hub:             hub,
		Generator:       generator,
		Logger:          logger,
		DefaultLocation: appConfig.DefaultLocation,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Sessions:       sessions,
		Participants:   participants,
		Workflow:       workflowService,
		Attachments:    attachments.NewService(attachments.Config{MaxBytes: appConfig.AttachmentsMaxBytes, Logger: logger}),
		Hub:            hub,
		Logger:         logger,
		AllowedOrigins: appConfig.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
