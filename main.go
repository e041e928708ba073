package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/blink-integration/cmd"
)

func main() {
	app := &cli.App{
		Name:   "blink-controller",
		Usage:  "mirrors blink camera networks into a local state tree",
		Action: cmd.BlinkCommand,
		Commands: []*cli.Command{
			{
				Name:      "hash-password",
				Usage:     "print the bcrypt hash to set as HTTP_PASSWORD_HASH",
				ArgsUsage: "<password>",
				Action:    cmd.HashPasswordCommand,
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "blink-username",
				EnvVars: []string{"BLINK_USERNAME"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "blink-password",
				EnvVars: []string{"BLINK_PASSWORD"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "blink-network",
				EnvVars: []string{"BLINK_NETWORK"},
				Value:   "",
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				EnvVars: []string{"POLL_INTERVAL"},
				Value:   60 * time.Second,
			},
			&cli.StringFlag{
				Name:    "namespace",
				EnvVars: []string{"STATE_NAMESPACE"},
				Value:   "blink.0",
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-pass",
				EnvVars: []string{"MQTT_PASS"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-user",
				EnvVars: []string{"MQTT_USER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "influx-url",
				EnvVars: []string{"INFLUX_URL"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "influx-token",
				EnvVars: []string{"INFLUX_TOKEN"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "http-addr",
				EnvVars: []string{"HTTP_ADDR"},
				Value:   "0.0.0.0:8000",
			},
			&cli.StringFlag{
				Name:    "jwt-secret",
				EnvVars: []string{"JWT_SECRET"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "database-url",
				EnvVars: []string{"DATABASE_URL"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "migrations-folder",
				EnvVars: []string{"MIGRATIONS_FOLDER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
