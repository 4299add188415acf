package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/2679373161/AI-Trader/exec"
)

// RemoteDecider calls an external agent service over HTTP. The service gets
// a JSON snapshot of what the agent is allowed to see and answers with
// intents; the transport is incidental, the payload is the contract.
type RemoteDecider struct {
	signature string
	universe  []string
	client    *resty.Client
}

// stepRequest is the wire form of a StepContext. Market data is flattened to
// per-symbol quotes as of the gated day so the service cannot ask for more
// than the gate allows.
type stepRequest struct {
	Agent      string           `json:"agent"`
	Date       string           `json:"date"`
	Iteration  int              `json:"iteration"`
	Cash       string           `json:"cash"`
	Holdings   map[string]int64 `json:"holdings"`
	Quotes     []quote          `json:"quotes"`
	Rejections []RejectionNote  `json:"rejections,omitempty"`
}

type quote struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date"`
	Open   string `json:"open"`
	Close  string `json:"close"`
}

type stepResponse struct {
	Intents    []exec.Intent `json:"intents"`
	Terminated bool          `json:"terminated"`
}

// NewRemote builds a decider for one external agent endpoint. The universe
// controls which symbols are quoted in each request.
func NewRemote(signature, baseURL string, universe []string, timeout time.Duration) *RemoteDecider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &RemoteDecider{
		signature: signature,
		universe:  universe,
		client:    client,
	}
}

func (d *RemoteDecider) Signature() string { return d.signature }

func (d *RemoteDecider) Step(ctx context.Context, sc StepContext) (StepResult, error) {
	req := stepRequest{
		Agent:      sc.Agent,
		Date:       sc.Date.Format("2006-01-02"),
		Iteration:  sc.Iteration,
		Cash:       sc.Position.Cash.String(),
		Holdings:   sc.Position.Holdings,
		Rejections: sc.Rejections,
	}

	for _, sym := range d.universe {
		rec, err := sc.Market.Lookup(sym)
		if err != nil {
			// no history yet for this symbol; the agent sees no quote
			continue
		}
		req.Quotes = append(req.Quotes, quote{
			Symbol: rec.Symbol,
			Date:   rec.Date.Format("2006-01-02"),
			Open:   rec.Open.String(),
			Close:  rec.Close.String(),
		})
	}

	var out stepResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/step")
	if err != nil {
		return StepResult{}, fmt.Errorf("agent %s: step call: %w", d.signature, err)
	}
	if resp.IsError() {
		return StepResult{}, fmt.Errorf("agent %s: step call: %s", d.signature, resp.Status())
	}

	return StepResult{Intents: out.Intents, Terminated: out.Terminated}, nil
}
