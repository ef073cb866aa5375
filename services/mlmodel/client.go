package mlmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/depthmesh/logging"
	"go.viam.com/depthmesh/ml"
)

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

// client implements Service against a model server speaking FlatTensors JSON.
type client struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger
}

// NewClientFromURL constructs a Service that calls the model server at baseURL.
func NewClientFromURL(baseURL string, timeout time.Duration, logger logging.Logger) (Service, error) {
	if logger == nil {
		logger = logging.Global().Sublogger("mlmodel")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "bad model url %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("model url %q must be http or https", baseURL)
	}
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

func (c *client) Infer(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error) {
	flat, err := TensorsToFlat(tensors)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(flat)
	if err != nil {
		return nil, err
	}

	var resp FlatTensors
	if err := c.do(ctx, http.MethodPost, "/infer", payload, &resp); err != nil {
		return nil, err
	}
	return FlatToTensors(&resp)
}

func (c *client) Metadata(ctx context.Context) (MLMetadata, error) {
	var md MLMetadata
	if err := c.do(ctx, http.MethodGet, "/metadata", nil, &md); err != nil {
		return MLMetadata{}, err
	}
	return md, nil
}

func (c *client) Close(ctx context.Context) error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "model request %s %s failed", method, path)
	}
	defer utils.UncheckedErrorFunc(resp.Body.Close)
	c.logger.Debugw("model request done", "method", method, "path", path, "status", resp.StatusCode,
		"took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.Errorf("model server returned %d for %s %s: %s",
			resp.StatusCode, method, path, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "cannot decode model response for %s", path)
	}
	return nil
}
