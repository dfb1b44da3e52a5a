package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mthangit/demo-payment/internal/domains/checkout/popup"
	"github.com/mthangit/demo-payment/internal/domains/checkout/returnurl"
	"github.com/mthangit/demo-payment/internal/domains/checkout/view"
)

type options struct {
	displayTZ   string
	packedTZ    string
	templateURL string
	timeout     time.Duration
	vnpayTmn    string
	vnpaySecret string
	momoPartner string
	momoAccess  string
	momoSecret  string
	asJSON      bool
}

type recordOutput struct {
	Provider    string `json:"provider"`
	Amount      string `json:"amount"`
	Method      string `json:"method"`
	Description string `json:"description"`
	Time        string `json:"time"`
	Result      string `json:"result,omitempty"`
}

func newRootCmd() *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:   "checkurl <return-url>",
		Short: "Render the payment confirmation for a provider return URL",
		Long:  "Parses a MoMo or VNPay return URL, verifies its signature when secrets are set and prints the confirmation view.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.displayTZ, "tz", envOr("CHECKOUT_DISPLAY_TZ", "Asia/Bangkok"), "display timezone")
	flags.StringVar(&opts.packedTZ, "packed-tz", envOr("CHECKOUT_PACKED_DATE_TZ", "Local"), "timezone of VNPay vnp_PayDate")
	flags.StringVar(&opts.templateURL, "template-url", os.Getenv("CHECKOUT_TEMPLATE_URL"), "payment_success.html URL, empty uses the embedded template")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "template fetch timeout")
	flags.StringVar(&opts.vnpayTmn, "vnpay-tmn-code", os.Getenv("VNPAY_TMN_CODE"), "expected vnp_TmnCode, empty skips the check")
	flags.StringVar(&opts.momoPartner, "momo-partner-code", os.Getenv("MOMO_PARTNER_CODE"), "expected MoMo partnerCode, empty skips the check")
	flags.StringVar(&opts.vnpaySecret, "vnpay-secret", os.Getenv("VNPAY_HASH_SECRET"), "VNPay hash secret")
	flags.StringVar(&opts.momoAccess, "momo-access-key", os.Getenv("MOMO_ACCESS_KEY"), "MoMo access key")
	flags.StringVar(&opts.momoSecret, "momo-secret", os.Getenv("MOMO_SECRET_KEY"), "MoMo secret key")
	flags.BoolVar(&opts.asJSON, "json", false, "print the normalized record as JSON instead of HTML")

	return cmd
}

func run(cmd *cobra.Command, opts options, rawURL string) error {
	params := returnurl.ParseParams(rawURL)
	provider, ok := returnurl.Recognize(params)
	if !ok {
		return errors.New("unrecognized provider: no partnerCode or vnp_TmnCode parameter")
	}

	verifier := returnurl.Verifier{
		VNPayTmnCode:    opts.vnpayTmn,
		VNPayHashSecret: opts.vnpaySecret,
		MomoPartnerCode: opts.momoPartner,
		MomoAccessKey:   opts.momoAccess,
		MomoSecretKey:   opts.momoSecret,
	}
	rec, err := popup.FromReturnURL(provider, rawURL, verifier)
	if err != nil {
		return err
	}

	display, err := returnurl.LoadLocation(opts.displayTZ)
	if err != nil {
		return fmt.Errorf("invalid --tz: %w", err)
	}
	packed, err := returnurl.LoadLocation(opts.packedTZ)
	if err != nil {
		return fmt.Errorf("invalid --packed-tz: %w", err)
	}
	formatter := returnurl.NewFormatter(display, packed)

	out := cmd.OutOrStdout()
	if opts.asJSON {
		f := view.DisplayFields(rec, formatter)

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(recordOutput{
			Provider:    provider.String(),
			Amount:      f.Amount,
			Method:      f.Method,
			Description: f.Info,
			Time:        f.Time,
			Result:      returnurl.ResultMessage(provider, params),
		})
	}

	renderer := view.NewRenderer(view.NewTemplateSource(opts.templateURL, opts.timeout), formatter)
	html, err := renderer.Render(cmd.Context(), rec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, html)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
