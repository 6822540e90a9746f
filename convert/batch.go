package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hmlt/archive"
	"hmlt/common"
	"hmlt/rpkg"
	"hmlt/state"
)

// direction of batch processing.
type direction int

const (
	toDocument direction = iota
	toResource
)

// candidate is a single input selected for batch processing. Path is
// relative to the batch source.
type candidate struct {
	path string
	rt   common.ResourceType
}

// matcher selects inputs of batch: binary resources for conversion,
// documents for rebuild. When type is fixed only its files are selected.
type matcher struct {
	dir   direction
	fixed *common.ResourceType
}

func (m matcher) match(name string) (common.ResourceType, bool) {
	lname := strings.ToLower(path.Base(filepath.ToSlash(name)))
	for _, n := range common.ResourceTypeNames() {
		rt, _ := common.ParseResourceType(n)
		if m.fixed != nil && *m.fixed != rt {
			continue
		}
		suffix := "." + n
		if m.dir == toResource {
			suffix += ".json"
		}
		if strings.HasSuffix(lname, suffix) {
			return rt, true
		}
	}
	return 0, false
}

// batch keeps state of a single batch run.
type batch struct {
	*task
	env     *state.LocalEnv
	match   matcher
	dst     string
	count   int
	failed  int
	errs    error
	started time.Time
}

// BatchConvert converts all binary resources found in directory or zip
// archive.
func BatchConvert(ctx context.Context, cmd *cli.Command) error {
	return runBatch(ctx, cmd, toDocument)
}

// BatchRebuild rebuilds all documents found in directory or zip archive.
func BatchRebuild(ctx context.Context, cmd *cli.Command) error {
	return runBatch(ctx, cmd, toResource)
}

func runBatch(ctx context.Context, cmd *cli.Command, dir direction) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("batch")

	src, dst, err := prepare(ctx, cmd, log, 2)
	if err != nil {
		return err
	}
	if len(dst) == 0 {
		return errors.New("no destination has been specified")
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}

	m := matcher{dir: dir}
	if name := cmd.String("type"); len(name) > 0 {
		rt, err := common.ParseResourceType(name)
		if err != nil {
			return err
		}
		m.fixed = &rt
	}

	b := &batch{task: newTask(env, log), env: env, match: m, dst: dst, started: time.Now()}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func() {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(b.started)),
			zap.Int("processed", b.count), zap.Int("failed", b.failed))
	}()

	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found: %w", err)
	}
	switch {
	case fi.IsDir():
		err = b.processDir(ctx, src, cmd.Bool("recursive"))
	case fi.Mode().IsRegular():
		isZip, er := isArchiveFile(src)
		if er != nil {
			return fmt.Errorf("unable to check archive type: %w", er)
		}
		if !isZip {
			return fmt.Errorf("batch source must be directory or zip archive (%s)", src)
		}
		err = b.processArchive(ctx, src)
	default:
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}
	if err != nil {
		return err
	}
	if b.count == 0 {
		log.Warn("Nothing to process", zap.String("source", src))
	}
	return b.errs
}

// isArchiveFile checks for zip local file header signature.
func isArchiveFile(name string) (bool, error) {
	f, err := os.Open(name)
	if err != nil {
		return false, err
	}
	defer f.Close()

	magic := make([]byte, 4)
	n, err := f.Read(magic)
	if err != nil && n == 0 {
		// empty file is definitely not an archive
		return false, nil
	}
	return bytes.Equal(magic[:n], []byte("PK\x03\x04")), nil
}

// collect lists matching files under dir in natural order.
func (b *batch) collect(dir string, recursive bool) ([]candidate, error) {
	var found []candidate
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			b.log.Warn("Skipping path", zap.String("path", p), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			if p != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if rt, ok := b.match.match(d.Name()); ok {
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			found = append(found, candidate{path: rel, rt: rt})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool {
		return natural.Less(found[i].path, found[j].path)
	})
	return found, nil
}

func (b *batch) processDir(ctx context.Context, dir string, recursive bool) error {
	found, err := b.collect(dir, recursive)
	if err != nil {
		return err
	}

	for _, c := range found {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.count++

		full := filepath.Join(dir, c.path)
		if err := b.processFile(full, c); err != nil {
			b.fail(c.path, err)
			keepFailed(b.env, b.log, full)
		}
	}
	return nil
}

func (b *batch) processFile(full string, c candidate) error {
	relDir := filepath.Dir(c.path)
	name := filepath.Base(c.path)

	switch b.match.dir {
	case toDocument:
		data, meta, _, err := readResource(full, "", c.rt.String())
		if err != nil {
			return err
		}
		return b.decode(c.path, c.rt, data, meta, filepath.Join(b.dst, relDir, documentName(name, c.rt)))
	default:
		doc, err := os.ReadFile(full)
		if err != nil {
			return fmt.Errorf("unable to read input: %w", err)
		}
		out := filepath.Join(b.dst, relDir, resourceName(name, c.rt))
		return b.rebuild(c.path, c.rt, doc, out, metaName(out))
	}
}

func (b *batch) processArchive(ctx context.Context, arc string) error {
	match := func(name string) bool {
		_, ok := b.match.match(name)
		return ok
	}
	return archive.Walk(arc, "", match, func(arc string, f *zip.File, lookup archive.Lookup) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.count++

		rt, _ := b.match.match(f.Name)
		if err := b.processEntry(f, rt, lookup); err != nil {
			b.fail(f.Name, err)
		}
		return nil
	})
}

func (b *batch) processEntry(f *zip.File, rt common.ResourceType, lookup archive.Lookup) error {
	data, err := archive.ReadFile(f)
	if err != nil {
		return err
	}

	relDir := filepath.FromSlash(path.Dir(f.Name))
	name := path.Base(f.Name)

	if b.match.dir == toResource {
		out := filepath.Join(b.dst, relDir, resourceName(name, rt))
		return b.rebuild(f.Name, rt, data, out, metaName(out))
	}

	var mf *zip.File
	for _, n := range metaCandidates(f.Name) {
		if mf = lookup(n); mf != nil {
			break
		}
	}
	if mf == nil {
		return fmt.Errorf("unable to find metadata for %s in archive", f.Name)
	}
	raw, err := archive.ReadFile(mf)
	if err != nil {
		return err
	}
	meta, err := rpkg.ParseResourceMeta(raw)
	if err != nil {
		return err
	}
	return b.decode(f.Name, rt, data, meta, filepath.Join(b.dst, relDir, documentName(name, rt)))
}

func (b *batch) fail(name string, err error) {
	b.failed++
	b.log.Error("Unable to process file", zap.String("file", name), zap.Error(err))
	b.errs = multierr.Append(b.errs, fmt.Errorf("%s: %w", name, err))
}
