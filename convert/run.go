package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"hmlt/common"
	"hmlt/config"
	"hmlt/rpkg"
	"hmlt/state"
)

// applyFlags overrides configured conversion settings with values given on
// command line.
func applyFlags(cmd *cli.Command, conf *config.ConversionConfig) error {
	if cmd.IsSet("game") {
		v, err := common.ParseVersion(cmd.String("game"))
		if err != nil {
			return err
		}
		conf.Game = v
	}
	if cmd.IsSet("lang-map") {
		conf.LangMap = cmd.String("lang-map")
	}
	if cmd.IsSet("default-locale") {
		conf.DefaultLocale = cmd.String("default-locale")
	}
	if cmd.IsSet("hex-precision") {
		conf.HexPrecision = cmd.Bool("hex-precision")
	}
	if cmd.IsSet("overwrite") {
		conf.Overwrite = cmd.Bool("overwrite")
	}
	if len(cmd.String("type")) > 0 {
		if _, err := common.ParseResourceType(cmd.String("type")); err != nil {
			return err
		}
	}
	return nil
}

// prepare validates command line common to all single file actions and
// returns absolute source path and destination as given.
func prepare(ctx context.Context, cmd *cli.Command, log *zap.Logger, maxArgs int) (src, dst string, err error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	env := state.EnvFromContext(ctx)
	if err := applyFlags(cmd, &env.Cfg.Conversion); err != nil {
		return "", "", err
	}

	src = cmd.Args().Get(0)
	if len(src) == 0 {
		return "", "", errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return "", "", err
	}
	if maxArgs > 1 {
		dst = cmd.Args().Get(1)
	}
	if cmd.Args().Len() > maxArgs {
		log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[maxArgs:]))
	}
	return src, dst, nil
}

func newTask(env *state.LocalEnv, log *zap.Logger) *task {
	return &task{
		convs:     newConverters(&env.Cfg.Conversion, env.Symbols),
		overwrite: env.Cfg.Conversion.Overwrite,
		rpt:       env.Rpt,
		log:       log,
	}
}

// keepFailed puts copy of the input which could not be processed into
// debug report.
func keepFailed(env *state.LocalEnv, log *zap.Logger, path string) {
	if err := env.Rpt.StoreCopy("failed/"+filepath.Base(path), path); err != nil {
		log.Warn("Unable to store failed input in report", zap.String("file", path), zap.Error(err))
	}
}

// readResource loads binary resource with its metadata and determines its
// type.
func readResource(src, metaPath, explicit string) ([]byte, *rpkg.ResourceMeta, common.ResourceType, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("unable to read input: %w", err)
	}
	if metaPath, err = findMeta(src, metaPath); err != nil {
		return nil, nil, 0, err
	}
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("unable to read metadata: %w", err)
	}
	meta, err := rpkg.ParseResourceMeta(raw)
	if err != nil {
		return nil, nil, 0, err
	}
	rt, err := resolveType(explicit, src, meta)
	if err != nil {
		return nil, nil, 0, err
	}
	return data, meta, rt, nil
}

// Convert turns single binary resource into JSON document.
func Convert(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src, dst, err := prepare(ctx, cmd, log, 2)
	if err != nil {
		return err
	}

	data, meta, rt, err := readResource(src, cmd.String("meta"), cmd.String("type"))
	if err != nil {
		return err
	}
	out, err := filepath.Abs(outputPath(src, dst, documentName(src, rt)))
	if err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", out), zap.Stringer("type", rt))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	if err := newTask(env, log).decode(filepath.Base(src), rt, data, meta, out); err != nil {
		keepFailed(env, log, src)
		return err
	}
	env.Rpt.Store("result/"+filepath.Base(out), out)
	return nil
}

// Rebuild turns single JSON document into binary resource and its metadata.
func Rebuild(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("rebuild")

	src, dst, err := prepare(ctx, cmd, log, 2)
	if err != nil {
		return err
	}

	rt, err := resolveType(cmd.String("type"), src, nil)
	if err != nil {
		return err
	}
	doc, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("unable to read input: %w", err)
	}
	out, err := filepath.Abs(outputPath(src, dst, resourceName(src, rt)))
	if err != nil {
		return err
	}
	metaOut := cmd.String("meta")
	if len(metaOut) == 0 {
		metaOut = metaName(out)
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", out), zap.Stringer("type", rt))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	if err := newTask(env, log).rebuild(filepath.Base(src), rt, doc, out, metaOut); err != nil {
		keepFailed(env, log, src)
		return err
	}
	env.Rpt.Store("result/"+filepath.Base(out), out)
	return nil
}

// Verify checks that binary resource survives conversion to document and
// back unchanged.
func Verify(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("verify")

	src, _, err := prepare(ctx, cmd, log, 1)
	if err != nil {
		return err
	}

	data, meta, rt, err := readResource(src, cmd.String("meta"), cmd.String("type"))
	if err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("source", src), zap.Stringer("type", rt))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	if err := newTask(env, log).verify(filepath.Base(src), rt, data, meta); err != nil {
		keepFailed(env, log, src)
		return err
	}
	return nil
}
