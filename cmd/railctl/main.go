package main

import (
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/passbi/railplanner/internal/config"
	"github.com/passbi/railplanner/internal/db"
	"github.com/passbi/railplanner/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	logging.Setup()

	app := &cli.App{
		Name:        "railctl",
		Description: "Operate the rail journey planner from the terminal",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the YAML configuration",
				EnvVars: []string{"RAIL_CONFIG"},
				Value:   "config.yml",
			},
		},

		Commands: []*cli.Command{
			checkCommand(),
			planCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

// connect loads the configuration and opens the database it names
func connect(c *cli.Context) (config.AppConfig, *pgxpool.Pool, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.AppConfig{}, nil, err
	}

	pool, err := db.Connect(c.Context, cfg.Database)
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	return cfg, pool, nil
}
