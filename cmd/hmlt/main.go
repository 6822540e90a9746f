package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hmlt/common"
	"hmlt/config"
	"hmlt/convert"
	"hmlt/misc"
	"hmlt/state"
)

// initializeAppContext loads configuration, sets up logging and optional
// debug report and reads hash list. Runs once arguments are parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.NArg() == 0 {
		// help or version only
		return ctx, nil
	}

	var err error
	env := state.EnvFromContext(ctx)

	cfgName := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(cfgName); err != nil {
		return ctx, fmt.Errorf("unable to load configuration: %w", err)
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to create debug report: %w", err)
		}
		if len(cfgName) > 0 {
			// effective configuration goes into report, defaults can be had with dumpconfig
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData("config/"+filepath.Base(cfgName), data)
			}
		}
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to set up logging: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Converter started",
		zap.Strings("args", os.Args),
		zap.String("version", misc.GetVersion()),
		zap.String("go", runtime.Version()),
		zap.String("commit", misc.GetGitHash()))

	if env.Rpt != nil {
		env.Log.Info("Debug report will be written", zap.String("archive", env.Rpt.Name()))
	}
	if len(cfgName) == 0 {
		env.Log.Info("Using built-in defaults, no configuration file")
	}
	return ctx, loadHashList(env, cmd)
}

// loadHashList reads hash names from file given on command line or in
// configuration. Without one hashes stay hex in documents.
func loadHashList(env *state.LocalEnv, cmd *cli.Command) error {
	name := env.Cfg.Conversion.HashList
	if cmd.IsSet("hash-list") {
		name = cmd.String("hash-list")
	}
	if err := env.LoadSymbols(name); err != nil {
		return err
	}
	if len(name) == 0 {
		env.Log.Info("No hash list, hashes will be kept as hex")
	}
	return nil
}

// destroyAppContext flushes logs and closes debug report. Errors are joined,
// nothing is logged after logging is restored.
func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Converter finished", zap.Duration("elapsed", env.Uptime()), zap.Strings("args", cmd.Args().Slice()))
	}
	env.RestoreStdLog()

	if env.Rpt != nil {
		// report archive picks up synced log file
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to finish debug report: %w", er))
		}
	}
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		err = multierr.Append(err, dropEmptyCrashLog(env.Cfg.Logging.FileLogger.Destination))
	}
	return
}

// dropEmptyCrashLog detaches crash output and removes crash log left next to
// log file when nothing was written to it.
func dropEmptyCrashLog(logName string) error {
	debug.SetCrashOutput(nil, debug.CrashOptions{})
	name := filepath.Join(filepath.Dir(logName), misc.GetAppName()+"-panic.log")
	fi, err := os.Stat(name)
	if err != nil || fi.Size() != 0 {
		return nil
	}
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("unable to remove crash log '%s': %w", name, err)
	}
	return nil
}

// set when error already went to log, main then skips stderr.
var errWasHandled bool

// exitErrHandler logs command error while log is still open.
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	if log := state.EnvFromContext(ctx).Log; log != nil {
		log.Error("Conversion failed", zap.Error(err))
		errWasHandled = true
	}
}

// usageErrorHandler passes usage errors through unchanged.
func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	if log := state.EnvFromContext(ctx).Log; log != nil {
		log.Warn("Unknown command, nothing to do", zap.String("command", name))
	}
}

// conversionFlags are shared by all commands working with resources.
func conversionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "type", Aliases: []string{"t"},
			Usage: "resource `TYPE` (supported types: " + strings.Join(common.ResourceTypeNames(), ", ") + "), inferred from file name when absent"},
		&cli.StringFlag{Name: "game", Aliases: []string{"g"},
			Usage: "engine `VERSION` resources belong to (supported: " + strings.Join(common.VersionNames(), ", ") + ")"},
		&cli.StringFlag{Name: "lang-map", Aliases: []string{"l"}, Usage: "comma separated language `CODES` overriding engine language order"},
		&cli.StringFlag{Name: "default-locale", Usage: "language `CODE` of default audio and animation"},
		&cli.BoolFlag{Name: "hex-precision", Usage: "keep Random weights as raw hex values"},
		&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "continue even if destination exists, overwrite files"},
	}
}

func singleFlags(metaUsage string) []cli.Flag {
	return append(conversionFlags(), &cli.StringFlag{Name: "meta", Aliases: []string{"m"}, Usage: metaUsage})
}

func batchFlags() []cli.Flag {
	return append(conversionFlags(), &cli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Usage: "descend into subdirectories of source directory"})
}

func main() {
	// interrupt cancels context, batch stops between files
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "converts game dialogue and language resources to editable JSON documents and back",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
			&cli.StringFlag{Name: "hash-list", Usage: "load hash names from `FILE` (HMLA), overrides configuration"},
		},
		Commands: []*cli.Command{
			{
				Name:         "convert",
				Usage:        "Converts binary resource to JSON document",
				OnUsageError: usageErrorHandler,
				Action:       convert.Convert,
				Flags:        singleFlags("read resource metadata from `FILE`, default is SOURCE.meta.JSON"),
				ArgsUsage:    "SOURCE [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    path to binary resource, for example "LINE.DLGE", metadata is expected
    next to it as "LINE.DLGE.meta.JSON" unless --meta is given

DESTINATION:
    directory or file name, if absent - document is placed next to source as "LINE.dlge.json"
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "rebuild",
				Usage:        "Rebuilds binary resource and its metadata from JSON document",
				OnUsageError: usageErrorHandler,
				Action:       convert.Rebuild,
				Flags:        singleFlags("write resource metadata to `FILE`, default is DESTINATION.meta.JSON"),
				ArgsUsage:    "SOURCE [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    path to JSON document, for example "LINE.dlge.json", comments and
    trailing commas are allowed

DESTINATION:
    directory or file name, if absent - resource is placed next to source as "LINE.DLGE"
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "verify",
				Usage:        "Checks that binary resource survives conversion to document and back",
				OnUsageError: usageErrorHandler,
				Action:       convert.Verify,
				Flags:        singleFlags("read resource metadata from `FILE`, default is SOURCE.meta.JSON"),
				ArgsUsage:    "SOURCE",
			},
			{
				Name:         "batch",
				Usage:        "Processes all resources in directory or zip archive",
				OnUsageError: usageErrorHandler,
				Commands: []*cli.Command{
					{
						Name:         "convert",
						Usage:        "Converts binary resources to JSON documents",
						OnUsageError: usageErrorHandler,
						Action:       convert.BatchConvert,
						Flags:        batchFlags(),
						ArgsUsage:    "SOURCE DESTINATION",
					},
					{
						Name:         "rebuild",
						Usage:        "Rebuilds binary resources from JSON documents",
						OnUsageError: usageErrorHandler,
						Action:       convert.BatchRebuild,
						Flags:        batchFlags(),
						ArgsUsage:    "SOURCE DESTINATION",
					},
				},
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    path to a directory or to a zip archive, files are processed in natural
    name order, failures are reported and do not stop processing

DESTINATION:
    directory, relative layout of the source is preserved
`, cli.CommandHelpTemplate),
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values which is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// os.Exit skips deferred calls, this must stay the only one
	defer func() {
		stop()
		if err != nil {
			// log may be absent during argument parsing
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Conversion failed: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
