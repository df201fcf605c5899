package usecases

import (
	"context"
	"time"

	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/core/ports"
	"github.com/samirrijal/rihla/internal/pkg/metrics"
)

// PaymentResolver exchanges a ticket's provisional payment reference for
// the redirectable URL. It is stateless and may be called again with the
// same reference after a failure. Navigating to the URL is the caller's job.
type PaymentResolver struct {
	api ports.TransportAPI
	now func() time.Time
}

// NewPaymentResolver creates a new PaymentResolver.
func NewPaymentResolver(api ports.TransportAPI) *PaymentResolver {
	return &PaymentResolver{api: api, now: time.Now}
}

// Resolve returns the payment session or a *domain.Failure with reason
// PaymentLinkFetchFailed (transport error) or PaymentLinkMissing (success
// without a URL).
func (r *PaymentResolver) Resolve(ctx context.Context, provisionalURL, token string) (domain.PaymentSession, error) {
	if provisionalURL == "" {
		metrics.PaymentLinksTotal.WithLabelValues(string(domain.ReasonPaymentLinkMissing)).Inc()
		return domain.PaymentSession{}, domain.NewFailure(domain.ReasonPaymentLinkMissing, nil)
	}

	url, err := r.api.ResolvePaymentLink(ctx, token, provisionalURL)
	if err != nil {
		metrics.PaymentLinksTotal.WithLabelValues(string(domain.ReasonPaymentLinkFetchFailed)).Inc()
		return domain.PaymentSession{}, domain.NewFailure(domain.ReasonPaymentLinkFetchFailed, err)
	}
	if url == "" {
		metrics.PaymentLinksTotal.WithLabelValues(string(domain.ReasonPaymentLinkMissing)).Inc()
		return domain.PaymentSession{}, domain.NewFailure(domain.ReasonPaymentLinkMissing, nil)
	}

	metrics.PaymentLinksTotal.WithLabelValues("resolved").Inc()
	return domain.PaymentSession{URL: url, ResolvedAt: r.now()}, nil
}
