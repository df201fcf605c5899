// Package transport is the client for the remote bus/train booking API.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/core/ports"
	"github.com/samirrijal/rihla/internal/pkg/metrics"
	"github.com/samirrijal/rihla/internal/pkg/telemetry"
)

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("transport api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("transport api: status %d: %s", e.StatusCode, e.Message)
}

// Client implements ports.TransportAPI over fasthttp.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
}

var _ ports.TransportAPI = (*Client)(nil)

// New creates a client for the API rooted at baseURL. timeout bounds every
// call whose context carries no deadline of its own.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "rihla",
			MaxConnsPerHost:     64,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 90 * time.Second,
		},
	}
}

// ListLocations calls GET /governorates.
func (c *Client) ListLocations(ctx context.Context, lang string) ([]domain.Location, error) {
	body, err := c.do(ctx, telemetry.SpanListLocations, call{
		method: fasthttp.MethodGet,
		url:    c.baseURL + "/governorates",
		lang:   lang,
	})
	if err != nil {
		return nil, err
	}
	return decodeLocations(body)
}

// SearchTrips calls POST /search.
func (c *Client) SearchTrips(ctx context.Context, fromStationID, toStationID, date string) ([]domain.Trip, error) {
	body, err := c.do(ctx, telemetry.SpanSearchTrips, call{
		method: fasthttp.MethodPost,
		url:    c.baseURL + "/search",
		body:   searchRequest{FromStationID: fromStationID, ToStationID: toStationID, Date: date},
	})
	if err != nil {
		return nil, err
	}

	var env envelope[[]tripDTO]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode trips: %w", err)
	}
	trips := make([]domain.Trip, 0, len(env.Data))
	for _, t := range env.Data {
		trips = append(trips, t.toDomain())
	}
	return trips, nil
}

// CreateTicket calls POST /trips/{tripId}/create-ticket.
func (c *Client) CreateTicket(ctx context.Context, token, tripID string, in ports.CreateTicketInput) (*domain.TicketOrder, error) {
	body, err := c.do(ctx, telemetry.SpanCreateTicket, call{
		method: fasthttp.MethodPost,
		url:    c.baseURL + "/trips/" + tripID + "/create-ticket",
		token:  token,
		body: createTicketRequest{
			NationalID:   in.NationalID,
			SeatsNo:      in.Seats,
			CoachClassID: in.ClassID,
		},
	})
	if err != nil {
		return nil, err
	}

	var env envelope[*ticketDTO]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("decode ticket: response has no data")
	}
	return env.Data.toDomain(), nil
}

// ResolvePaymentLink calls POST <provisionalURL> with an empty body. A
// relative reference is resolved against the base URL.
func (c *Client) ResolvePaymentLink(ctx context.Context, token, provisionalURL string) (string, error) {
	url := provisionalURL
	if strings.HasPrefix(url, "/") {
		url = c.baseURL + url
	}

	body, err := c.do(ctx, telemetry.SpanResolvePaymentLink, call{
		method: fasthttp.MethodPost,
		url:    url,
		token:  token,
	})
	if err != nil {
		return "", err
	}

	return decodePaymentLink(body), nil
}

// decodePaymentLink extracts data.url from a successful response. A body
// that is not JSON, or whose data or url has the wrong shape, yields "" so
// the caller reports a missing link rather than a transport failure.
func decodePaymentLink(body []byte) string {
	var env envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil || len(env.Data) == 0 {
		return ""
	}
	var dto paymentLinkDTO
	if err := json.Unmarshal(env.Data, &dto); err != nil {
		return ""
	}
	return strings.TrimSpace(dto.URL)
}

type call struct {
	method string
	url    string
	token  string
	lang   string
	body   any
}

// do performs one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op string, in call) (_ []byte, err error) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, op)
	span.SetAttributes(attribute.String("http.method", in.method))
	defer func() {
		metrics.ObserveTransport(op, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(in.url)
	req.Header.SetMethod(in.method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if in.lang != "" {
		req.Header.Set(fasthttp.HeaderAcceptLanguage, in.lang)
	}
	if in.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+in.token)
	}
	if in.body != nil {
		payload, err := json.Marshal(in.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(payload)
	}

	if deadline, ok := ctx.Deadline(); ok {
		err = c.http.DoDeadline(req, resp, deadline)
	} else {
		err = c.http.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status < 200 || status > 299 {
		return nil, &StatusError{StatusCode: status, Message: errorMessage(resp.Body())}
	}

	// the response is released on return
	return append([]byte(nil), resp.Body()...), nil
}

// errorMessage pulls "message" out of an error body, falling back to a
// truncated copy of the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
