package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/openfiscal/cclastrib/internal/config"
	"github.com/openfiscal/cclastrib/internal/model"
	"github.com/openfiscal/cclastrib/internal/nfe"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4")).MarginBottom(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	valueStyle   = lipgloss.NewStyle().Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

type classifyFlags struct {
	regime    string
	cfop      string
	ufOrigin  string
	ufDest    string
	cstICMS   string
	ncm       string
	year      int
	itemValue float64

	govPurchase bool
	donation    bool

	zfmProduced   bool
	issuerZFM     bool
	recipientZFM  bool
	issuerSuframa string
	suframaActive bool
}

func classifyCmd() *cobra.Command {
	flags := &classifyFlags{}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a single transaction item",
		Long: `Runs one item through the classification engine and prints the
operational code, rates, treatment pair, confidence and the full
justification trail.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClassify(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.regime, "regime", "", "issuer fiscal regime (e.g. SN, RPA)")
	cmd.Flags().StringVar(&flags.cfop, "cfop", "", "operation CFOP (e.g. 5101)")
	cmd.Flags().StringVar(&flags.ufOrigin, "uf-origem", "", "issuer state")
	cmd.Flags().StringVar(&flags.ufDest, "uf-destino", "", "recipient state")
	cmd.Flags().StringVar(&flags.cstICMS, "cst", "", "CST ICMS of the operation")
	cmd.Flags().StringVar(&flags.ncm, "ncm", "", "item NCM, dots allowed")
	cmd.Flags().IntVar(&flags.year, "ano", 0, "emission year (default: current year)")
	cmd.Flags().Float64Var(&flags.itemValue, "valor", 0, "item value for base/amount derivation")
	cmd.Flags().BoolVar(&flags.govPurchase, "compra-gov", false, "government purchase")
	cmd.Flags().BoolVar(&flags.donation, "doacao", false, "donation")
	cmd.Flags().BoolVar(&flags.zfmProduced, "produzido-zfm", false, "item produced in the Zona Franca de Manaus")
	cmd.Flags().BoolVar(&flags.issuerZFM, "emitente-zfm", false, "issuer resides in the ZFM")
	cmd.Flags().BoolVar(&flags.recipientZFM, "destinatario-zfm", false, "recipient resides in the ZFM")
	cmd.Flags().StringVar(&flags.issuerSuframa, "suframa", "", "issuer SUFRAMA registry id")
	cmd.Flags().BoolVar(&flags.suframaActive, "suframa-ativo", false, "issuer SUFRAMA registry is active")

	for _, required := range []string{"regime", "cfop", "uf-origem", "uf-destino", "cst", "ncm"} {
		_ = cmd.MarkFlagRequired(required)
	}

	return cmd
}

func runClassify(cmd *cobra.Command, flags *classifyFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	a, cleanup, err := buildAgent(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	req := flags.toRequest()
	resp, err := a.Handle(cmd.Context(), req)
	if err != nil {
		return err
	}

	printResult(cmd, req, resp.Result)
	return nil
}

func (f *classifyFlags) toRequest() *model.ClassificationRequest {
	emission := time.Now()
	if f.year > 0 {
		emission = time.Date(f.year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	req := &model.ClassificationRequest{
		EmissionDate:       emission,
		Regime:             f.regime,
		CFOP:               f.cfop,
		UFOrigin:           f.ufOrigin,
		UFDest:             f.ufDest,
		CSTICMS:            f.cstICMS,
		NCM:                f.ncm,
		GovernmentPurchase: f.govPurchase,
		Donation:           f.donation,
		ZFMProduced:        f.zfmProduced,
		IssuerInZFM:        f.issuerZFM,
		RecipientInZFM:     f.recipientZFM,
		IssuerSUFRAMA:      f.issuerSuframa,
	}
	if f.issuerSuframa != "" {
		req.IssuerSUFRAMAActive = model.TriFromBool(f.suframaActive)
	}
	if f.itemValue > 0 {
		v := f.itemValue
		req.ItemValue = &v
	}
	return req
}

func printResult(cmd *cobra.Command, req *model.ClassificationRequest, res *model.ClassificationResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, titleStyle.Render("Classificação IBS/CBS"))
	fmt.Fprintf(out, "%s %s — %s\n", labelStyle.Render("cClasTrib:"), valueStyle.Render(res.Code), res.Description)
	fmt.Fprintf(out, "%s %s / %s\n", labelStyle.Render("CST/cClassTrib:"), res.CSTIBSCBS, res.CClassTrib)
	fmt.Fprintf(out, "%s IBS %.4f  CBS %.4f\n", labelStyle.Render("Alíquotas:"), res.RateIBS, res.RateCBS)
	if res.Category != "" {
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Categoria:"), res.Category)
	}
	if res.OwnProduction.Known() {
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Produção própria:"), res.OwnProduction)
	}
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Previsão de entrega:"),
		nfe.DeliveryForecast(req.EmissionDate).Format("02/01/2006"))
	if res.ZFMBenefitApplied {
		fmt.Fprintln(out, valueStyle.Render("Benefício ZFM aplicado: IBS zerado"))
	}
	if res.SelectiveTax {
		fmt.Fprintln(out, warningStyle.Render("Imposto Seletivo aplicável"))
	}
	fmt.Fprintf(out, "%s %.2f\n", labelStyle.Render("Confiança:"), res.Confidence)

	for _, alert := range res.Alerts {
		fmt.Fprintf(out, "%s %s\n", warningStyle.Render("⚠"), alert)
	}
	for _, pending := range res.PendingItems {
		fmt.Fprintf(out, "%s %s\n", pendingStyle.Render("✗"), pending)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, labelStyle.Render("Fundamentos:"))
	for _, j := range res.Justifications {
		fmt.Fprintf(out, "  %s %s", valueStyle.Render(j.Rule), j.Reason)
		if j.Source != "" {
			fmt.Fprintf(out, " %s", subtleStyle.Render("["+j.Source+"]"))
		}
		fmt.Fprintln(out)
	}
}
