// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime/debug"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
	"github.com/darwinstop/stib-notify/internal/poll"
	"github.com/darwinstop/stib-notify/internal/schedule"
	"github.com/goschtalt/goschtalt"
	"github.com/joho/godotenv"
	"github.com/xmidt-org/arrange/arrangehttp"
	"github.com/xmidt-org/sallust"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const (
	applicationName = "stib-notify"
)

// These match what goreleaser provides.
var (
	commit  = "undefined"
	version = "undefined"
	date    = "undefined"
	builtBy = "undefined"
)

// CLI is the structure that is used to capture the command line arguments.
type CLI struct {
	Dev   bool     `optional:"" short:"d" help:"Run in development mode."`
	Show  bool     `optional:"" short:"s" help:"Show the configuration and exit."`
	Graph string   `optional:"" short:"g" help:"Output the dependency graph to the specified file."`
	Files []string `optional:"" short:"f" help:"Specific configuration files or directories."`
	Env   []string `optional:"" short:"e" help:"Environment files to load before reading the configuration."`
}

// stibNotify is the main entry point for the program.  It is responsible for
// setting up the dependency injection framework and returning the app object.
func stibNotify(args []string) (*fx.App, error) {
	var (
		gscfg *goschtalt.Config

		// Capture the dependency tree in case we need to debug something.
		g fx.DotGraph

		// Capture the command line arguments.
		cli *CLI

		early earlyExit
	)

	app := fx.New(
		fx.Supply(cliArgs(args)),
		fx.Supply(&early),
		fx.Populate(&g),
		fx.Populate(&gscfg),
		fx.Populate(&cli),

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),

		fx.Provide(
			provideCLI,
			provideLogger,
			provideConfig,
			provideCredentials,
			provideTransit,
			provideMessenger,
			provideLoop,
			provideWebhook,
			provideStatus,
			provideLogLevel,
			provideRouter,
			provideServer,
			provideSchedule,

			goschtalt.UnmarshalFunc[sallust.Config]("logger", goschtalt.Optional()),
			goschtalt.UnmarshalFunc[Transit]("transit"),
			goschtalt.UnmarshalFunc[Credentials]("credentials", goschtalt.Optional()),
			goschtalt.UnmarshalFunc[Messenger]("messenger"),
			goschtalt.UnmarshalFunc[Poll]("poll"),
			goschtalt.UnmarshalFunc[Schedule]("schedule", goschtalt.Optional()),
			goschtalt.UnmarshalFunc[arrangehttp.ServerConfig]("server"),
			goschtalt.UnmarshalFunc[Status]("status", goschtalt.Optional()),
		),

		fx.Invoke(
			handleCLIShow,
			lifeCycle,
		),
	)

	if cli != nil && cli.Graph != "" {
		_ = os.WriteFile(cli.Graph, []byte(g), 0600)
	}

	if early {
		return nil, nil
	}

	if err := app.Err(); err != nil {
		return nil, err
	}

	return app, nil
}

func main() {
	app, err := stibNotify(os.Args[1:])
	if err == nil {
		if app != nil {
			app.Run()
		}
		return
	}

	fmt.Fprintln(os.Stderr, err)
	os.Exit(-1)
}

// Provides a named type so it's a bit easier to flow through & use in fx.
type cliArgs []string

// Provides a named type so it's a bit easier to flow through & use in fx.
type earlyExit bool

// Handle the CLI processing and return the processed input.
func provideCLI(args cliArgs) (*CLI, error) {
	return provideCLIWithOpts(args, false)
}

func provideCLIWithOpts(args cliArgs, testOpts bool) (*CLI, error) {
	var cli CLI

	// Create a no-op option to satisfy the kong.New() call.
	var opt kong.Option = kong.OptionFunc(
		func(*kong.Kong) error {
			return nil
		},
	)

	if testOpts {
		opt = kong.Writers(nil, nil)
	}

	parser, err := kong.New(&cli,
		kong.Name(applicationName),
		kong.Description("Tells you when your tram is about to reach the stop.\n"+
			fmt.Sprintf("\tVersion:  %s\n", version)+
			fmt.Sprintf("\tDate:     %s\n", date)+
			fmt.Sprintf("\tCommit:   %s\n", commit)+
			fmt.Sprintf("\tBuilt By: %s\n", builtBy),
		),
		kong.UsageOnError(),
		opt,
	)
	if err != nil {
		return nil, err
	}

	if testOpts {
		parser.Exit = func(_ int) { panic("exit") }
	}

	_, err = parser.Parse(args)
	if err != nil {
		parser.FatalIfErrorf(err)
	}

	if err = loadEnv(cli.Env); err != nil {
		return nil, err
	}

	return &cli, nil
}

// loadEnv loads the listed environment files, or ./.env when none are listed
// and it exists.  Variables already set win over the files.
func loadEnv(files []string) error {
	if len(files) == 0 {
		err := godotenv.Load()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	return godotenv.Load(files...)
}

type LoggerIn struct {
	fx.In
	CLI *CLI
	Cfg sallust.Config
}

type LoggerOut struct {
	fx.Out
	Logger *zap.Logger
	Level  zap.AtomicLevel
}

// Create the logger and configure it based on if the program is in
// debug mode or normal mode.  The level is shared so it can be changed
// while running.
func provideLogger(in LoggerIn) (LoggerOut, error) {
	if in.CLI.Dev {
		in.Cfg.EncoderConfig.EncodeLevel = "capitalColor"
		in.Cfg.EncoderConfig.EncodeTime = "RFC3339"
		in.Cfg.Level = "DEBUG"
		in.Cfg.Development = true
		in.Cfg.Encoding = "console"
		in.Cfg.OutputPaths = append(in.Cfg.OutputPaths, "stderr")
		in.Cfg.ErrorOutputPaths = append(in.Cfg.ErrorOutputPaths, "stderr")
	}

	zcfg, err := in.Cfg.NewZapConfig()
	if err != nil {
		return LoggerOut{}, err
	}

	logger, err := zcfg.Build()
	if err != nil {
		return LoggerOut{}, err
	}

	return LoggerOut{
		Logger: logger,
		Level:  zcfg.Level,
	}, nil
}

// handleCLIShow handles the -s/--show option where the configuration is shown,
// then the program is exited.
func handleCLIShow(cli *CLI, cfg *goschtalt.Config, early *earlyExit) {
	if !cli.Show {
		return
	}

	fmt.Fprintln(os.Stdout, cfg.Explain().String())

	out, err := cfg.Marshal()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	} else {
		fmt.Fprintln(os.Stdout, "## Final Configuration\n---\n"+string(out))
	}

	*early = earlyExit(true)
}

type LifeCycleIn struct {
	fx.In
	Logger     *zap.Logger
	LC         fx.Lifecycle
	Shutdowner fx.Shutdowner
	Server     *server
	Schedule   *schedule.Trigger
	Loop       *poll.Loop
}

func onStart(srv *server, sched *schedule.Trigger, logger *zap.Logger) func(context.Context) error {
	logger = logger.Named("on_start")

	return func(ctx context.Context) error {
		defer func() {
			if r := recover(); nil != r {
				logger.Error("stacktrace from panic", zap.String("stacktrace", string(debug.Stack())), zap.Any("panic", r))
			}
		}()

		if err := srv.Start(ctx); err != nil {
			return err
		}

		sched.Start()
		return nil
	}
}

func onStop(srv *server, sched *schedule.Trigger, loop *poll.Loop, shutdowner fx.Shutdowner, logger *zap.Logger) func(context.Context) error {
	logger = logger.Named("on_stop")

	return func(ctx context.Context) error {
		defer func() {
			if r := recover(); nil != r {
				logger.Error("stacktrace from panic", zap.String("stacktrace", string(debug.Stack())), zap.Any("panic", r))
			}

			if err := shutdowner.Shutdown(); err != nil {
				logger.Error("encountered error trying to shutdown app: ", zap.Error(err))
			}
		}()

		if err := sched.Stop(ctx); err != nil {
			logger.Warn("schedule did not stop cleanly", zap.Error(err))
		}

		err := srv.Stop(ctx)

		loop.Shutdown()

		return err
	}
}

func lifeCycle(in LifeCycleIn) {
	logger := in.Logger.Named("fx_lifecycle")
	in.LC.Append(
		fx.Hook{
			OnStart: onStart(in.Server, in.Schedule, logger),
			OnStop:  onStop(in.Server, in.Schedule, in.Loop, in.Shutdowner, logger),
		},
	)
}
