package moneymanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// contains http utils to deal with the backend

// response is a fully read HTTP response.
type response struct {
	Status int
	Body   []byte
}

func (r response) ok() bool { return r.Status >= 200 && r.Status < 300 }

// doJSON sends in (if not nil) as JSON to addr and reads the whole response.
// Only transport failures are returned as errors, any status is a response.
func doJSON(ctx context.Context, client *http.Client, method, addr string, header http.Header, in any) (response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return response{}, fmt.Errorf("cannot encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, addr, body)
	if err != nil {
		return response{}, fmt.Errorf("cannot create http request %q: %w", addr, err)
	}
	for k, v := range header {
		req.Header[k] = append([]string(nil), v...)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("cannot execute http request: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return response{}, fmt.Errorf("cannot read receiving http body: %w", err)
	}
	return response{Status: resp.StatusCode, Body: buf.Bytes()}, nil
}

// join builds an endpoint URL from the configured base URL.
func join(base string, elem ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(elem, "/")
}
