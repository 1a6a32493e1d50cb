package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfiscal/cclastrib/internal/config"
	"github.com/openfiscal/cclastrib/internal/refdata"
)

func tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Show the loaded reference tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, err := refdata.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			snap := store.Snapshot()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Reference tables"))
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Directory:"), cfg.DataDir)
			rows := []struct {
				name  string
				count int
			}{
				{"cclastrib", len(snap.Rules)},
				{"ncm_master", len(snap.NCMMaster)},
				{"ncm_excecoes", len(snap.NCMExceptions)},
				{"ncm_catalogo", len(snap.NCMCatalog)},
				{"cfop_descricoes", len(snap.CFOP)},
				{"transicao_ibs", len(snap.TransitionIBS)},
				{"transicao_cbs", len(snap.TransitionCBS)},
				{"cst_ibs_cbs_map", len(snap.Treatments)},
				{"zfm_beneficios", len(snap.ZFMBenefits)},
			}
			for _, r := range rows {
				fmt.Fprintf(out, "  %-18s %d rows\n", r.name, r.count)
			}
			return nil
		},
	}
}
