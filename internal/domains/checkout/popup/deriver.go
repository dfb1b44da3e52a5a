package popup

import (
	"context"
	"fmt"

	"github.com/mthangit/demo-payment/internal/domains/checkout/model"
	"github.com/mthangit/demo-payment/internal/domains/checkout/returnurl"
	"github.com/mthangit/demo-payment/pkg/logger"
)

// InfoLookup tra cứu kết quả thanh toán theo session của provider
type InfoLookup interface {
	PaymentInfo(ctx context.Context, sessionID string) (*model.PaymentInfo, error)
}

// RecordDeriver:
//   - provider session-based: gọi payment-info với session_id từ lúc tạo payment
//   - provider return URL: parse params, verify chữ ký, normalize
type RecordDeriver struct {
	info     InfoLookup
	verifier returnurl.Verifier
}

func NewRecordDeriver(info InfoLookup, verifier returnurl.Verifier) *RecordDeriver {
	return &RecordDeriver{info: info, verifier: verifier}
}

func (d *RecordDeriver) Derive(ctx context.Context, a *Attempt, returnURL string) (returnurl.Record, error) {
	if a.Provider.SessionBased() {
		info, err := d.info.PaymentInfo(ctx, a.ProviderSessionID)
		if err != nil {
			return returnurl.Record{}, fmt.Errorf("lookup payment info: %w", err)
		}
		return returnurl.FromPaymentInfo(*info), nil
	}

	return FromReturnURL(a.Provider, returnURL, d.verifier)
}

// FromReturnURL dựng Record từ return URL của provider p
func FromReturnURL(p returnurl.Provider, returnURL string, verifier returnurl.Verifier) (returnurl.Record, error) {
	if err := verifier.Verify(p, returnURL); err != nil {
		return returnurl.Record{}, err
	}

	params := returnurl.ParseParams(returnURL)
	rec, ok := returnurl.Normalize(p, params)
	if !ok {
		return returnurl.Record{}, fmt.Errorf("%w: %s", model.ErrUnrecognizedProvider, p)
	}

	if msg := returnurl.ResultMessage(p, params); msg != "" {
		logger.Info("Provider result", map[string]interface{}{
			"provider": p.String(),
			"result":   msg,
		})
	}
	return rec, nil
}
