// Package api talks to the remote lab's data source.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/san-kum/labplay/internal/experiment"
	"github.com/san-kum/labplay/internal/sample"
	"github.com/sirupsen/logrus"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type Config struct {
	BaseURL                      string
	ControllersEndpoint          string
	ExperimentParametersEndpoint string
	SimulationEndpoint           string
	Token                        string
	Timeout                      time.Duration
}

type Client struct {
	cfg    Config
	client *http.Client
	log    logrus.FieldLogger
}

func NewClient(cfg Config, log logrus.FieldLogger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    log.WithField("component", "api"),
	}
}

func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// Controllers lists the experiments available for a model. The response is
// either a bare list or wrapped in {"data": [...]}.
func (c *Client) Controllers(ctx context.Context, modelID string) ([]experiment.Controller, error) {
	body, err := c.do(ctx, http.MethodGet, c.cfg.BaseURL+c.cfg.ControllersEndpoint+modelID, nil)
	if err != nil {
		return nil, err
	}

	body = bytes.TrimSpace(body)
	var controllers []experiment.Controller
	if len(body) > 0 && body[0] == '{' {
		var env struct {
			Data []experiment.Controller `json:"data"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, errors.Wrap(err, "decode controllers")
		}
		return env.Data, nil
	}
	if err := json.Unmarshal(body, &controllers); err != nil {
		return nil, errors.Wrap(err, "decode controllers")
	}
	return controllers, nil
}

func (c *Client) ParameterSet(ctx context.Context, experimentID string) (*experiment.ParameterSet, error) {
	body, err := c.do(ctx, http.MethodGet, c.cfg.BaseURL+c.cfg.ExperimentParametersEndpoint+experimentID, nil)
	if err != nil {
		return nil, err
	}
	var p experiment.ParameterSet
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errors.Wrap(err, "decode parameter set")
	}
	return &p, nil
}

// Catalog lists the controllers of a model with their parameter sets.
func (c *Client) Catalog(ctx context.Context, modelID string) ([]experiment.Controller, error) {
	controllers, err := c.Controllers(ctx, modelID)
	if err != nil {
		return nil, err
	}
	for i := range controllers {
		p, err := c.ParameterSet(ctx, controllers[i].ExperimentID.String())
		if err != nil {
			return nil, errors.Wrapf(err, "experiment %s", controllers[i].ExperimentID)
		}
		controllers[i].Parameters = p
	}
	return controllers, nil
}

// Simulation posts the selected parameters and returns the raw response.
func (c *Client) Simulation(ctx context.Context, params map[string]string) ([]byte, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "encode parameters")
	}
	return c.do(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.SimulationEndpoint, payload)
}

// FetchSimulation runs a simulation and decodes its records.
func FetchSimulation[T any](ctx context.Context, c *Client, params map[string]string) ([]T, error) {
	body, err := c.Simulation(ctx, params)
	if err != nil {
		return nil, err
	}
	return sample.Decode[T](body)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	log := c.log.WithFields(logrus.Fields{"method": method, "url": url})
	log.Debug("request")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Error("request failed")
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
