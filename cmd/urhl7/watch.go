package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/URMC/urHL7/internal/domain/archive"
	"github.com/URMC/urHL7/internal/platform/db"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Process spool files dropped into DIR until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, reader, err := loadReader(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, os.Stderr)

			rulesPath, _ := cmd.Flags().GetString("rules")
			if rulesPath == "" {
				rulesPath = cfg.RulesFile
			}
			ruleSet, err := loadRules(rulesPath)
			if err != nil {
				return err
			}

			p := &pipeline{reader: reader, rules: ruleSet, outDir: cfg.SpoolOutDir, log: logger}
			if out, _ := cmd.Flags().GetString("out"); out != "" {
				p.outDir = out
			}
			p.remove, _ = cmd.Flags().GetBool("remove")

			if store, _ := cmd.Flags().GetBool("archive"); store {
				if !cfg.ArchiveEnabled() {
					return fmt.Errorf("--archive requires DATABASE_URL")
				}
				pool, err := db.NewPool(cmd.Context(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
				if err != nil {
					return err
				}
				defer pool.Close()
				p.archive = archive.NewService(archive.NewRepoPG(pool), logger)
			}

			skipExisting, _ := cmd.Flags().GetBool("skip-existing")
			w, err := p.watch(cmd.Context(), args[0], !skipExisting)
			if err != nil {
				return err
			}
			defer w.Stop()

			<-cmd.Context().Done()
			logger.Info().Msg("stopping spool watcher")
			return nil
		},
	}
	cmd.Flags().Bool("archive", false, "Store each accepted message in the archive database")
	cmd.Flags().String("rules", "", "Reject messages failing this rule set (default RULES_FILE)")
	cmd.Flags().String("out", "", "Forward accepted messages to this directory (default SPOOL_OUT_DIR)")
	cmd.Flags().Bool("remove", false, "Delete each spool file once processed")
	cmd.Flags().Bool("skip-existing", false, "Ignore files already in DIR at startup")
	return cmd
}
