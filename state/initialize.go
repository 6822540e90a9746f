package state

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"hmlt/hashlist"
)

func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start:   time.Now(),
		Symbols: hashlist.New(),
	}
}

// LoadSymbols reads hash list from path. Empty path keeps empty symbol
// table.
func (e *LocalEnv) LoadSymbols(path string) error {
	if len(path) == 0 {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read hash list: %w", err)
	}
	hl, err := hashlist.Load(data)
	if err != nil {
		return fmt.Errorf("unable to load hash list (%s): %w", path, err)
	}
	e.Symbols = hl

	if e.Log != nil {
		e.Log.Debug("Hash list loaded", zap.String("file", path), zap.Uint32("version", hl.Version),
			zap.Int("tags", hl.Tags.Len()), zap.Int("switches", hl.Switches.Len()), zap.Int("lines", hl.Lines.Len()))
	}
	e.Rpt.Store("hash_list.hmla", path)
	return nil
}
