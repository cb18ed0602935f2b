package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jademcosta/pescador/pkg/app"
	"github.com/jademcosta/pescador/pkg/config"
	"github.com/jademcosta/pescador/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const version = "0.0.1" //FIXME: automatize this

var configPath *string

func main() {
	rootCmd := &cobra.Command{
		Use:   "pescador --config <FILE_PATH>",
		Short: "Fetches the objects announced on a subscription, for a fixed time window",
		Run:   start,
	}

	setupCommandFlags(rootCmd)

	err := rootCmd.Execute()
	if err != nil {
		panic(fmt.Sprintf("Error on startup: %v", err))
	}
}

func setupCommandFlags(rootCmd *cobra.Command) {
	configPath = rootCmd.Flags().StringP("config", "c", "", "[required]The path for the config file")
	err := rootCmd.MarkFlagRequired("config")
	if err != nil {
		panic(fmt.Sprintf("err on flags setup: %v", err))
	}
}

func start(_ *cobra.Command, _ []string) {
	conf := initializeConfig()
	runLog := initializeRunLog(conf)
	l := logger.New(conf.Log, runLog)

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		l.Debug(fmt.Sprintf(format, args...))
	}))
	defer undo()
	if err != nil {
		l.Error("error setting GOMAXPROCS", "error", err)
	}

	err = app.New(conf, l, runLog).Start()
	if err != nil {
		l.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func initializeConfig() *config.Config {

	confData, err := os.ReadFile(*configPath)
	if err != nil {
		panic(fmt.Errorf("error reading config file: %w", err))
	}

	c, err := config.New(confData)
	if err != nil {
		panic(fmt.Errorf("error initializing/parsing config: %w", err))
	}

	c.Version = version

	return c
}

func initializeRunLog(c *config.Config) *logger.RunLog {
	runLog, err := logger.NewRunLog(c.Log.Directory, time.Now())
	if err != nil {
		panic(fmt.Errorf("error creating run log file: %w", err))
	}

	return runLog
}
