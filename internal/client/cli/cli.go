// Package cli команды клиента: login, profile, refresh, logout, status.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/iudanet/pkceauth/internal/client/api"
	"github.com/iudanet/pkceauth/internal/client/iocli"
	"github.com/iudanet/pkceauth/internal/client/storage/boltdb"
)

const (
	defaultServerURL = "http://localhost:3000"
	defaultDBPath    = "pkceauth-client.db"
)

// Cli состояние одного запуска клиента
type Cli struct {
	io        iocli.IO
	logger    *slog.Logger
	client    *api.Client
	store     *boltdb.Storage
	serverURL string
	dbPath    string
}

// New создает состояние CLI
func New(io iocli.IO, logger *slog.Logger) *Cli {
	return &Cli{io: io, logger: logger}
}

// Execute выполняет команду с аргументами args и всегда закрывает локальную БД
func Execute(ctx context.Context, io iocli.IO, logger *slog.Logger, version string, args []string) error {
	c := New(io, logger)
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	root := c.NewRootCommand(version)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand создает корневую команду клиента
func (c *Cli) NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "pkceauth",
		Short:         "PKCE authentication client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}
	root.SetOut(c.io)
	root.SetErr(c.io)

	root.PersistentFlags().StringVar(&c.serverURL, "server", defaultServerURL, "Server URL")
	root.PersistentFlags().StringVar(&c.dbPath, "db", defaultDBPath, "Path to local cookie database")

	root.AddCommand(
		c.newLoginCommand(),
		c.newProfileCommand(),
		c.newRefreshCommand(),
		c.newLogoutCommand(),
		c.newStatusCommand(),
	)

	return root
}

// open открывает bbolt и собирает API клиент с персистентным cookie jar
func (c *Cli) open(ctx context.Context) error {
	store, err := boltdb.New(ctx, c.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	client, err := api.NewClient(c.serverURL, api.NewPersistentJar(c.logger, store, nil), c.logger)
	if err != nil {
		_ = store.Close()
		return err
	}

	c.store = store
	c.client = client
	return nil
}

func (c *Cli) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

// Close освобождает ресурсы, если команда завершилась ошибкой
// и PersistentPostRunE не был вызван
func (c *Cli) Close() error {
	return c.close()
}
