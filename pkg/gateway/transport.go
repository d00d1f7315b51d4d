package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apierrors "github.com/cyberedpro/cybered/pkg/errors"
	"github.com/cyberedpro/cybered/pkg/observability"
)

// request is one logical call; every attempt sends an identical copy.
type request struct {
	method   string
	url      string
	endpoint string
	body     []byte
	header   http.Header
}

func (r *request) host() string {
	u, err := url.Parse(r.url)
	if err != nil {
		return ""
	}
	return u.Host
}

// response is a fully read HTTP response. The body is read inside the
// attempt's deadline so nothing outlives it.
type response struct {
	status int
	header http.Header
	body   []byte
}

func (g *Gateway) send(ctx context.Context, req *request) (*response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, sendBody(req.body))
	if err != nil {
		return nil, apierrors.Wrap(apierrors.ErrCodeInvalidInput, err, "build request")
	}
	httpReq.Header = req.header.Clone()

	host := httpReq.URL.Host
	observability.HTTP().OnRequest(ctx, req.method, host, req.endpoint)
	start := time.Now()

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return nil, apierrors.Network(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierrors.Network(err)
	}
	observability.HTTP().OnResponse(ctx, req.method, host, req.endpoint, resp.StatusCode, time.Since(start))

	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// classify turns a response into the call's result: an HTTPError for
// non-2xx, nil for 204 or an empty body, otherwise the JSON body.
func classify(res *response) (json.RawMessage, error) {
	if res.status < 200 || res.status > 299 {
		return nil, &apierrors.HTTPError{
			Status:  res.status,
			Message: errorMessage(res.status, res.body),
			Header:  res.header,
			Body:    res.body,
		}
	}
	if res.status == http.StatusNoContent {
		return nil, nil
	}

	body := bytes.TrimSpace(res.body)
	if len(body) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, apierrors.New(apierrors.ErrCodeInvalidFormat, "response body is not valid JSON (status %d)", res.status)
	}
	return json.RawMessage(body), nil
}

// errorBody covers the error shapes the API returns: {"detail": "..."},
// {"detail": [{"msg": "..."}]} for validation failures, and {"message": "..."}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

type validationIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// errorMessage extracts a human-readable message from an error response,
// falling back to the status text.
func errorMessage(status int, body []byte) string {
	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		if msg := detailMessage(eb.Detail); msg != "" {
			return msg
		}
		if eb.Message != "" {
			return eb.Message
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var issues []validationIssue
	if json.Unmarshal(raw, &issues) != nil {
		return ""
	}
	msgs := make([]string, 0, len(issues))
	for _, is := range issues {
		if is.Msg == "" {
			continue
		}
		if field := lastLoc(is.Loc); field != "" {
			msgs = append(msgs, field+": "+is.Msg)
		} else {
			msgs = append(msgs, is.Msg)
		}
	}
	return strings.Join(msgs, "; ")
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
