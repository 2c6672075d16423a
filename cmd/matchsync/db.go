package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/onnwee/matchsync/db"
)

const dsnFlag = "dsn"

func dbCommand() *cli.Command {
	dsn := &cli.StringFlag{Name: dsnFlag, Usage: "postgres DSN of the cache database", EnvVars: []string{"DB_DSN"}}
	return &cli.Command{
		Name:  "db",
		Usage: "Manage the schema of the postgres cache backend",
		Subcommands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply pending migrations",
				Flags:  []cli.Flag{dsn},
				Action: withDB(db.RunMigrations),
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent migration",
				Flags:  []cli.Flag{dsn},
				Action: withDB(db.MigrateDown),
			},
			{
				Name:  "version",
				Usage: "Print the applied schema version",
				Flags: []cli.Flag{dsn},
				Action: func(cCtx *cli.Context) error {
					return withDB(func(dbx *sql.DB) error {
						v, dirty, err := db.GetMigrationVersion(dbx)
						if err != nil {
							return err
						}
						state := "clean"
						if dirty {
							state = "dirty"
						}
						_, err = fmt.Fprintf(cCtx.App.Writer, "%d (%s)\n", v, state)
						return err
					})(cCtx)
				},
			},
		},
	}
}

// withDB opens the database named by --dsn for the duration of fn.
func withDB(fn func(*sql.DB) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		dbx, err := db.Connect(cCtx.String(dsnFlag))
		if err != nil {
			return err
		}
		defer func() {
			if err := dbx.Close(); err != nil {
				slog.Warn("close db failed", slog.Any("err", err))
			}
		}()
		if err := db.Ping(cCtx.Context, dbx, defaultPingTimeout); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		return fn(dbx)
	}
}
