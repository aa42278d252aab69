// Package probe issues single HTTP requests against the API under test.
//
// A probe never fails: connection errors and timeouts come back as a Result
// with Status 0 and a description in Err, so a check can score the attempt as
// zero and move on. Nothing is retried.
package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/resty.v1"
)

// DefaultTimeout is the per-request timeout used when none is configured.
const DefaultTimeout = 5 * time.Second

// Result is the outcome of one probe.
type Result struct {
	Method  string      `json:"method"`
	Path    string      `json:"path"`
	Status  int         `json:"status"`
	Headers http.Header `json:"-"`
	Raw     []byte      `json:"-"`
	// Data holds the decoded JSON body, the raw text when the body is not
	// JSON, or nil for an empty body.
	Data any    `json:"data,omitempty"`
	OK   bool   `json:"ok"`
	Err  string `json:"error,omitempty"`
}

// Reachable reports whether the server answered at all.
func (r Result) Reachable() bool {
	return r.Status != 0
}

// ID returns the "id" field of an object body.
func (r Result) ID() (string, bool) {
	if !gjson.ValidBytes(r.Raw) {
		return "", false
	}
	v := gjson.GetBytes(r.Raw, "id")
	if !v.Exists() || v.Type == gjson.Null || v.String() == "" {
		return "", false
	}
	return v.String(), true
}

// IsArray reports whether the body is a JSON array.
func (r Result) IsArray() bool {
	return gjson.ValidBytes(r.Raw) && gjson.ParseBytes(r.Raw).IsArray()
}

// Len returns the number of elements of an array body, or 0.
func (r Result) Len() int {
	if !r.IsArray() {
		return 0
	}
	return len(gjson.ParseBytes(r.Raw).Array())
}

// Field looks up a gjson path in the body.
func (r Result) Field(path string) gjson.Result {
	return gjson.GetBytes(r.Raw, path)
}

// IsJSON reports whether the response declared a JSON content type.
func (r Result) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.Headers.Get("Content-Type")), "json")
}

// Prober sends requests to one base URL.
type Prober struct {
	baseURL string
	client  *resty.Client
}

// New creates a Prober. A zero timeout selects DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	baseURL = strings.TrimRight(baseURL, "/")

	client := resty.New().
		SetHostURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &Prober{baseURL: baseURL, client: client}
}

// BaseURL returns the server address probes are sent to.
func (p *Prober) BaseURL() string {
	return p.baseURL
}

// Do sends one request. A JSON body is sent only for POST, PUT and PATCH.
func (p *Prober) Do(ctx context.Context, method, path string, body any) Result {
	res := Result{Method: method, Path: path}

	req := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")
	if body != nil && sendsBody(method) {
		payload, err := json.Marshal(body)
		if err != nil {
			res.Err = "encoding request body: " + err.Error()
			return res
		}
		req.SetBody(payload)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		res.Err = describe(err)
		return res
	}

	res.Status = resp.StatusCode()
	res.Headers = resp.Header()
	res.Raw = resp.Body()
	res.OK = res.Status >= 200 && res.Status < 300
	res.Data = decode(res.Raw)
	return res
}

// Get is shorthand for Do with GET and no body.
func (p *Prober) Get(ctx context.Context, path string) Result {
	return p.Do(ctx, http.MethodGet, path, nil)
}

// CheckServer probes each path in order and reports the first reachable
// result. The server counts as running if any path answered.
func (p *Prober) CheckServer(ctx context.Context, paths ...string) (Result, bool) {
	if len(paths) == 0 {
		paths = []string{"/", "/usuarios", "/status"}
	}
	var last Result
	for _, path := range paths {
		last = p.Get(ctx, path)
		if last.Reachable() {
			return last, true
		}
		if ctx.Err() != nil {
			break
		}
	}
	return last, false
}

func sendsBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func decode(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func describe(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "Client.Timeout") || strings.Contains(msg, "deadline exceeded") {
		return "timeout: server did not respond"
	}
	return "connection failed: " + msg
}
