package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/URMC/urHL7/internal/config"
	"github.com/URMC/urHL7/internal/platform/hl7v2"
	"github.com/URMC/urHL7/internal/platform/rules"
	"github.com/URMC/urHL7/internal/platform/spool"
)

// eachMessage feeds every message in path to fn with its 1-based ordinal.
func eachMessage(cmd *cobra.Command, reader spool.Reader, path string, fn func(n int, m *hl7v2.Message) error) error {
	n := 0
	_, err := reader.ReadFile(cmd.Context(), path, func(m *hl7v2.Message) error {
		n++
		return fn(n, m)
	})
	return err
}

func loadReader(cmd *cobra.Command) (*config.Config, spool.Reader, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, spool.Reader{}, err
	}
	return cfg, spoolReader(cmd, cfg), nil
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE",
		Short: "Print every message in FILE as a JSON tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reader, err := loadReader(cmd)
			if err != nil {
				return err
			}
			views := []hl7v2.MessageView{}
			if err := eachMessage(cmd, reader, args[0], func(_ int, m *hl7v2.Message) error {
				views = append(views, m.View())
				return nil
			}); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(views)
		},
	}
}

func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get FILE PATH",
		Short: "Print the value at PATH for every message in FILE",
		Long: `Print the value at PATH for every message in FILE, one line per match.
A segment-only PATH (e.g. PID or OBX[2]) prints the whole segment.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			loc, err := hl7v2.ParseLocation(args[1])
			if err != nil {
				return err
			}
			_, reader, err := loadReader(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return eachMessage(cmd, reader, args[0], func(_ int, m *hl7v2.Message) error {
				for _, v := range lookup(m, loc, all) {
					fmt.Fprintln(out, v)
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("all", false, "Print every match instead of the first")
	return cmd
}

// lookup resolves loc to printable strings: decoded element data, or whole
// segments for segment-only paths.
func lookup(m *hl7v2.Message, loc hl7v2.Location, all bool) []string {
	var out []string
	if !loc.HasField() {
		if !all {
			if s := m.SegmentAt(loc); s != nil {
				out = append(out, s.Marshal())
			}
			return out
		}
		for _, s := range m.SegmentsAt(loc) {
			out = append(out, s.Marshal())
		}
		return out
	}
	if !all {
		if m.HasAt(loc) {
			out = append(out, m.GetAt(loc).Data())
		}
		return out
	}
	for _, e := range m.GetAllAt(loc) {
		out = append(out, e.Data())
	}
	return out
}

// transformCmd builds a command that rewrites every message in FILE and
// writes the result to stdout or --out.
func transformCmd(use, short string, setup func(cmd *cobra.Command) (func(m *hl7v2.Message) error, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apply, err := setup(cmd)
			if err != nil {
				return err
			}
			_, reader, err := loadReader(cmd)
			if err != nil {
				return err
			}

			var dst io.Writer = cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				dst = f
			}
			w := spool.NewWriter(dst, reader.Terminator)

			_, err = reader.ReadFile(cmd.Context(), args[0], func(m *hl7v2.Message) error {
				if err := apply(m); err != nil {
					return err
				}
				return w.Write(m)
			})
			return err
		},
	}
	cmd.Flags().String("out", "", "Write to this file instead of stdout")
	return cmd
}

func rewriteCmd() *cobra.Command {
	cmd := transformCmd("rewrite FILE", "Move every message in FILE to a new delimiter set",
		func(cmd *cobra.Command) (func(m *hl7v2.Message) error, error) {
			raw, _ := cmd.Flags().GetString("delimiters")
			d, err := hl7v2.ParseDelimiters(raw)
			if err != nil {
				return nil, err
			}
			noHeader, _ := cmd.Flags().GetBool("no-header")
			return func(m *hl7v2.Message) error {
				return m.ChangeDelimiters(d, !noHeader)
			}, nil
		})
	cmd.Flags().String("delimiters", "", `Five delimiter characters in field, component, repetition, escape, subcomponent order (e.g. "|^~\&")`)
	cmd.Flags().Bool("no-header", false, "Leave MSH-1 and MSH-2 unchanged")
	_ = cmd.MarkFlagRequired("delimiters")
	return cmd
}

func compressCmd() *cobra.Command {
	return transformCmd("compress FILE", "Trim trailing empty fields from every message in FILE",
		func(*cobra.Command) (func(m *hl7v2.Message) error, error) {
			return func(m *hl7v2.Message) error {
				m.Compress()
				return nil
			}, nil
		})
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Validate every message in FILE against a rule set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, reader, err := loadReader(cmd)
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("rules")
			if path == "" {
				path = cfg.RulesFile
			}
			if path == "" {
				return fmt.Errorf("--rules or RULES_FILE is required")
			}
			set, err := rules.LoadFile(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			total, failed := 0, 0
			if err := eachMessage(cmd, reader, args[0], func(n int, m *hl7v2.Message) error {
				total++
				res := set.EvaluateAll(m)
				if res.Passed() {
					fmt.Fprintf(out, "message %d (%s): PASS\n", n, m.Header().ControlID)
					return nil
				}
				failed++
				fmt.Fprintf(out, "message %d (%s): FAIL\n", n, m.Header().ControlID)
				for _, o := range res.Failures() {
					fmt.Fprintf(out, "  %s %s: %q\n", o.Rule.Path, o.Rule.Kind, o.Value)
				}
				return nil
			}); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d messages failed validation", failed, total)
			}
			return nil
		},
	}
	cmd.Flags().String("rules", "", "Rule set YAML file (default RULES_FILE)")
	return cmd
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

func splitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split FILE",
		Short: "Write each message in FILE to its own file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("out")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			_, reader, err := loadReader(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return eachMessage(cmd, reader, args[0], func(n int, m *hl7v2.Message) error {
				name := splitName(n, m)
				f, err := os.Create(filepath.Join(dir, name))
				if err != nil {
					return err
				}
				w := spool.NewWriter(f, reader.Terminator)
				if err := w.Write(m); err != nil {
					w.Close()
					return err
				}
				if err := w.Close(); err != nil {
					return err
				}
				fmt.Fprintln(out, filepath.Join(dir, name))
				return nil
			})
		},
	}
	cmd.Flags().String("out", ".", "Directory for the split files")
	return cmd
}

// splitName is the ordinal plus the control ID when there is one.
func splitName(n int, m *hl7v2.Message) string {
	id := unsafeName.ReplaceAllString(m.Header().ControlID, "_")
	if id == "" {
		return fmt.Sprintf("%04d.hl7", n)
	}
	return fmt.Sprintf("%04d_%s.hl7", n, id)
}
