package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker/v2"

	"vibedesk/internal/domain"
	"vibedesk/internal/infra/tracer"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the circuit breaker around the agent endpoint.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration
}

// Result is what one completed stream session returns to the caller.
type Result struct {
	SessionID        string
	AssistantContent string
	Files            map[string]string
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

// Client owns the lifecycle of one agent invocation at a time: the HTTP
// request, the chunk decode loop and the splitter/decoder/processor chain.
// Serialization across invocations for one chat session is the caller's
// responsibility; the client itself does not queue.
type Client struct {
	endpoint string
	httpc    *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	logger   *slog.Logger
}

// NewClient creates a client for the agent endpoint. A zero-valued cfg uses
// breaker defaults; httpc may be nil to use a pooled default client.
func NewClient(endpoint string, httpc *http.Client, cfg BreakerConfig, logger *slog.Logger) *Client {
	if httpc == nil {
		httpc = NewHTTPClient(0, 0)
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "agent",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			// User aborts must not trip the breaker.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		endpoint: endpoint,
		httpc:    httpc,
		breaker:  cb,
		logger:   logger,
	}
}

// Run issues the prompt to the agent and drains the event stream, feeding
// every decoded event through the processor. It returns the final transcript
// and file map on success.
//
// A non-2xx status or network failure fails the whole invocation; mid-stream
// decode problems are absorbed by the processor. Cancelling ctx aborts the
// request at the next chunk boundary without invoking further callbacks and
// surfaces domain.ErrStreamCancelled.
func (c *Client) Run(ctx context.Context, prompt string, cb Callbacks) (*Result, error) {
	if err := cb.validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.StartSpan(ctx, "agent.stream")
	span.SetAttributes(tracer.StringAttr("endpoint", c.endpoint))
	defer span.End()

	resp, err := c.connect(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.ErrStreamCancelled
		}
		tracer.RecordError(span, err)
		return nil, err
	}
	defer resp.Body.Close()

	state := domain.NewStreamState()
	proc := NewProcessor(state, cb, c.logger)
	splitter := &FrameSplitter{}

	var pending []byte
	buf := make([]byte, 4096)
	for {
		// Cancellation takes effect at chunk boundaries, before any
		// buffered frames from the next read are processed.
		if ctx.Err() != nil {
			return nil, domain.ErrStreamCancelled
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			// Hold back a trailing incomplete rune so multi-byte
			// characters split across reads decode intact.
			complete, rest := splitCompleteRunes(pending)
			text := string(complete)
			pending = append(pending[:0], rest...)

			for _, frame := range splitter.Split(text) {
				if ev := DecodeFrame(frame); ev != nil {
					proc.Process(ev)
				}
			}
		}

		if readErr == io.EOF {
			// End-of-stream flush: the splitter withholds the last
			// segment until more data confirms it is terminated, so
			// it must be flushed explicitly here.
			tail := splitter.Flush() + string(pending)
			if ev := DecodeFrame(tail); ev != nil {
				proc.Process(ev)
			}
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return nil, domain.ErrStreamCancelled
			}
			tracer.RecordError(span, readErr)
			return nil, domain.WrapOp("agent.Run: read stream", readErr)
		}
	}

	proc.CloseOrphans()
	tracer.SetOK(span)
	return &Result{
		SessionID:        state.SessionID,
		AssistantContent: state.AssistantContent,
		Files:            state.FilesCopy(),
	}, nil
}

// connect issues the POST through the circuit breaker and returns an open
// response body on 2xx.
func (c *Client) connect(ctx context.Context, prompt string) (*http.Response, error) {
	body, err := json.Marshal(promptRequest{Prompt: prompt})
	if err != nil {
		return nil, domain.WrapOp("agent.Run: encode request", err)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, domain.WrapOp("agent.Run: build request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, domain.NewDomainError("agent.Run", domain.ErrAgentStatus, resp.Status)
		}
		return resp, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("agent circuit open: %w", domain.ErrAgentUnavailable)
		}
		return nil, err
	}
	return resp, nil
}

// splitCompleteRunes returns the longest prefix of b that ends on a rune
// boundary, and the held-back tail of an incomplete trailing rune (at most
// utf8.UTFMax-1 bytes).
func splitCompleteRunes(b []byte) (complete, rest []byte) {
	for i := len(b); i > 0 && len(b)-i < utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i-1]) {
			if utf8.FullRune(b[i-1:]) {
				return b, nil
			}
			return b[:i-1], b[i-1:]
		}
	}
	return b, nil
}

// NewHTTPClient creates an *http.Client with pooled transport and timeouts
// suitable for long-lived streaming responses. Zero values pick defaults.
func NewHTTPClient(connTimeout, headerTimeout time.Duration) *http.Client {
	if connTimeout == 0 {
		connTimeout = 30 * time.Second
	}
	if headerTimeout == 0 {
		headerTimeout = 60 * time.Second
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   connTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: headerTimeout,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       120 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		// No overall client timeout: streams are unbounded and lifetime is
		// governed by ctx.
	}
}
