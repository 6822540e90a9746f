package convert

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"hmlt/common"
	"hmlt/config"
	"hmlt/rpkg"
)

var errMismatch = errors.New("rebuilt resource differs from original")

// task carries what processing of a single file needs.
type task struct {
	convs     *converters
	overwrite bool
	rpt       *config.Report
	log       *zap.Logger
}

// decode converts binary resource to JSON document written to out.
func (t *task) decode(name string, rt common.ResourceType, data []byte, meta *rpkg.ResourceMeta, out string) error {
	log := t.log.With(zap.String("from", name), zap.Stringer("type", rt))
	log.Debug("Conversion starting")
	defer func(start time.Time) {
		log.Debug("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", out))
	}(time.Now())

	conv, err := t.convs.get(rt)
	if err != nil {
		return err
	}
	doc, err := conv.decode(data, meta)
	if err != nil {
		return fmt.Errorf("unable to convert %s: %w", name, err)
	}
	return t.write(out, doc)
}

// rebuild converts JSON document to binary resource and its metadata.
func (t *task) rebuild(name string, rt common.ResourceType, doc []byte, out, metaOut string) error {
	log := t.log.With(zap.String("from", name), zap.Stringer("type", rt))
	log.Debug("Rebuild starting")
	defer func(start time.Time) {
		log.Debug("Rebuild completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", out))
	}(time.Now())

	conv, err := t.convs.get(rt)
	if err != nil {
		return err
	}
	res, err := conv.encode(doc)
	if err != nil {
		return fmt.Errorf("unable to rebuild %s: %w", name, err)
	}
	meta, err := res.Meta.Marshal()
	if err != nil {
		return err
	}
	if err := t.write(out, res.File); err != nil {
		return err
	}
	return t.write(metaOut, meta)
}

// verify converts binary resource to document and back, comparing result
// with the original.
func (t *task) verify(name string, rt common.ResourceType, data []byte, meta *rpkg.ResourceMeta) error {
	conv, err := t.convs.get(rt)
	if err != nil {
		return err
	}
	doc, err := conv.decode(data, meta)
	if err != nil {
		return fmt.Errorf("unable to convert %s: %w", name, err)
	}
	res, err := conv.encode(doc)
	if err != nil {
		return fmt.Errorf("unable to rebuild %s: %w", name, err)
	}

	if bytes.Equal(data, res.File) {
		t.log.Info("Resource is symmetric", zap.String("file", name), zap.Int("size", len(data)))
		return nil
	}

	diff, changed := hexDiff(data, res.File)
	t.log.Warn("Rebuilt resource differs", zap.String("file", name),
		zap.Int("original", len(data)), zap.Int("rebuilt", len(res.File)), zap.Int("lines", changed))
	t.log.Debug("Hex dump difference\n" + diff)
	t.rpt.StoreData("verify/"+filepath.Base(name)+".diff", []byte(diff))
	return fmt.Errorf("%s: %w", name, errMismatch)
}

// write creates output file, existing files are replaced only when
// overwrite was requested.
func (t *task) write(name string, data []byte) error {
	if _, err := os.Stat(name); err == nil {
		if !t.overwrite {
			return fmt.Errorf("output file already exists: %s", name)
		}
		t.log.Debug("Overwriting existing file", zap.String("file", name))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	if err := os.WriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	return nil
}
