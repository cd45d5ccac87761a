package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/URMC/urHL7/internal/domain/archive"
	"github.com/URMC/urHL7/internal/platform/hl7v2"
	"github.com/URMC/urHL7/internal/platform/rules"
	"github.com/URMC/urHL7/internal/platform/spool"
)

// pipeline processes spool files: each message is validated, archived and
// forwarded to outDir. Any stage whose field is empty is skipped.
type pipeline struct {
	reader  spool.Reader
	rules   rules.Set
	archive *archive.Service
	outDir  string
	remove  bool
	log     zerolog.Logger
}

type fileStats struct {
	Messages int
	Rejected int
	Archived int
}

func (p *pipeline) processFile(ctx context.Context, path string) error {
	stats, err := p.process(ctx, path)
	evt := p.log.Info()
	if err != nil {
		evt = p.log.Error().Err(err)
	}
	evt.Str("file", path).
		Int("messages", stats.Messages).
		Int("rejected", stats.Rejected).
		Int("archived", stats.Archived).
		Msg("spool file processed")
	if err != nil {
		return err
	}
	if p.remove {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}

func (p *pipeline) process(ctx context.Context, path string) (fileStats, error) {
	var stats fileStats

	var out *spool.Writer
	if p.outDir != "" {
		w, err := spool.OpenFile(filepath.Join(p.outDir, filepath.Base(path)), p.reader.Terminator)
		if err != nil {
			return stats, err
		}
		defer w.Close()
		out = w
	}

	_, err := p.reader.ReadFile(ctx, path, func(m *hl7v2.Message) error {
		stats.Messages++
		if len(p.rules) > 0 {
			if res := p.rules.EvaluateAll(m); !res.Passed() {
				stats.Rejected++
				for _, o := range res.Failures() {
					p.log.Warn().
						Str("file", path).
						Str("control_id", m.Header().ControlID).
						Str("path", o.Rule.Path).
						Str("rule", string(o.Rule.Kind)).
						Str("value", o.Value).
						Msg("message failed rule")
				}
				return nil
			}
		}
		if p.archive != nil {
			_, err := p.archive.StoreMessage(ctx, m)
			switch {
			case errors.Is(err, archive.ErrInvalid):
				stats.Rejected++
				p.log.Warn().Err(err).Str("file", path).Msg("message not archivable")
				return nil
			case err != nil:
				return err
			}
			stats.Archived++
		}
		if out != nil {
			return out.Write(m)
		}
		return nil
	})
	return stats, err
}

// watch starts a spool watcher on dir that runs processFile for each
// new file. The caller must Stop the returned watcher.
func (p *pipeline) watch(ctx context.Context, dir string, existing bool) (*spool.Watcher, error) {
	if p.outDir != "" {
		if err := os.MkdirAll(p.outDir, 0o755); err != nil {
			return nil, err
		}
	}
	opts := spool.DefaultWatcherOptions()
	opts.ProcessExisting = existing
	opts.Logger = &p.log
	w, err := spool.NewWatcher(dir, p.processFile, &opts)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	p.log.Info().Str("dir", dir).Str("out", p.outDir).Msg("watching spool directory")
	return w, nil
}
