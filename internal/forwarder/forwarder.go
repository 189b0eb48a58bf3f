package forwarder

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/relayforge/webhook-forwarder/internal/destination"
)

// ForwarderIdentity is the value of the X-Forwarded-By header added to every
// outbound delivery.
const ForwarderIdentity = "webhook-forwarder"

// scrubbedHeaders are tied to the inbound hop and are meaningless or
// misleading downstream.
var scrubbedHeaders = []string{
	"Host",
	"Cf-Connecting-Ip",
	"Cf-Ray",
	"Cf-Visitor",
	"Cf-Ipcountry",
}

// CapturedRequest holds everything the dispatcher needs from the inbound
// request, read exactly once before fan-out begins. The body buffer is shared
// read-only across all deliveries; an inbound network body cannot be replayed
// across N independent outbound calls.
type CapturedRequest struct {
	Method  string
	Header  http.Header
	Host    string
	Subpath string
	Body    []byte
}

// Capture buffers the inbound request for fan-out. Subpath is the path
// remainder beyond the identifier segment, empty when absent.
func Capture(r *http.Request, subpath string) (*CapturedRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	return &CapturedRequest{
		Method:  r.Method,
		Header:  r.Header.Clone(),
		Host:    r.Host,
		Subpath: subpath,
		Body:    body,
	}, nil
}

// Forwarder delivers captured requests to destination sets.
type Forwarder struct {
	client  *http.Client
	logger  *slog.Logger
	timeout time.Duration
}

// New creates a Forwarder with the given per-delivery timeout.
// Redirects are not followed: success is strictly a 200-299 response.
func New(logger *slog.Logger, timeout time.Duration) *Forwarder {
	return &Forwarder{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  logger,
		timeout: timeout,
	}
}

// Dispatch delivers the captured request to every destination concurrently
// and waits for all legs before aggregating. Results are written into a
// pre-sized slice by destination index, so the aggregate always reflects
// configured order no matter which leg finishes first.
//
// Callers resolve the routing table first; an unknown or empty identifier
// never reaches Dispatch.
func (f *Forwarder) Dispatch(ctx context.Context, id string, targets []*destination.Destination, captured *CapturedRequest) *Aggregate {
	results := make([]Attempt, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)

		go func(i int, target *destination.Destination) {
			defer wg.Done()
			results[i] = f.deliver(ctx, target, captured)
		}(i, target)
	}
	wg.Wait()

	agg := newAggregate(id, results)

	f.logger.Info("Fan-out complete",
		slog.String("id", id),
		slog.Int("targets", agg.TotalTargets),
		slog.Int("successful", agg.Successful),
		slog.Int("failed", agg.Failed))

	return agg
}

// deliver performs one outbound call. Transport failures yield a record with
// no status code; any received response yields its status code, with success
// meaning 2xx. Failures here never propagate to sibling deliveries.
func (f *Forwarder) deliver(ctx context.Context, target *destination.Destination, captured *CapturedRequest) Attempt {
	composed := target.Compose(captured.Subpath)
	start := time.Now()

	deliveryCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		deliveryCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	// Zero-length bodies are omitted entirely to preserve GET-like semantics.
	var body io.Reader
	if len(captured.Body) > 0 {
		body = bytes.NewReader(captured.Body)
	}

	req, err := http.NewRequestWithContext(deliveryCtx, captured.Method, composed, body)
	if err != nil {
		elapsed := time.Since(start)
		return Attempt{
			Target:   composed,
			Success:  false,
			Error:    err.Error(),
			Duration: formatDuration(elapsed),
			Elapsed:  elapsed,
		}
	}

	req.Header = outboundHeaders(captured)

	res, err := f.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		f.logger.Warn("Delivery failed",
			slog.String("target", composed),
			slog.String("error", err.Error()))

		return Attempt{
			Target:   composed,
			Success:  false,
			Error:    err.Error(),
			Duration: formatDuration(duration),
			Elapsed:  duration,
		}
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	target.RecordResponse(duration)

	return Attempt{
		Target:     composed,
		Success:    res.StatusCode >= 200 && res.StatusCode <= 299,
		Status:     res.StatusCode,
		StatusText: http.StatusText(res.StatusCode),
		Duration:   formatDuration(duration),
		Elapsed:    duration,
	}
}

// outboundHeaders copies the captured headers, removes the hop-specific ones,
// and sets the forwarder identification headers. X-Original-Host carries the
// inbound Host value, empty string when absent.
func outboundHeaders(captured *CapturedRequest) http.Header {
	header := captured.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}

	for _, name := range scrubbedHeaders {
		header.Del(name)
	}

	header.Set("X-Forwarded-By", ForwarderIdentity)
	header.Set("X-Original-Host", captured.Host)

	return header
}
