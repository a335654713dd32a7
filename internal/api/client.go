// Package api 是 QuickPlan 后端 REST 接口的客户端网关。
// 所有接口都返回 {success, message, data} 信封；HTTP 失败或 success=false 都视为操作失败。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quickplan-go/internal/config"
	"quickplan-go/pkg/log"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Options 控制网关的行为。零值字段使用默认值。
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	Retries      int           // 仅对 GET 的传输层错误重试
	RetryBackoff time.Duration // 第 n 次重试前等待 RetryBackoff * 2^(n-1)
	RateLimit    float64       // 每秒请求数，0 表示不限流
	Burst        int
	HTTPClient   *http.Client
	Registerer   prometheus.Registerer
}

// Client 是远端 API 网关
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	retries    int
	backoff    time.Duration
	limiter    *rate.Limiter
	metrics    *Metrics
}

// envelope 是所有接口共用的响应信封
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewClient 创建一个新的网关实例。
func NewClient(opts Options) (*Client, error) {
	base := opts.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("无效的 base url %q: %w", opts.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("无效的 base url %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		baseURL:    u,
		httpClient: httpClient,
		retries:    opts.Retries,
		backoff:    opts.RetryBackoff,
		metrics:    NewMetrics(opts.Registerer),
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c, nil
}

// NewClientFromConfig 按 client 配置段创建网关。
func NewClientFromConfig(cfg config.ClientConfig, reg prometheus.Registerer) (*Client, error) {
	return NewClient(Options{
		BaseURL:      cfg.BaseURL,
		Timeout:      cfg.Timeout,
		Retries:      cfg.Retries,
		RetryBackoff: cfg.RetryBackoff,
		RateLimit:    cfg.RateLimit,
		Burst:        cfg.Burst,
		Registerer:   reg,
	})
}

// call 描述一次接口调用
type call struct {
	op     string
	method string
	path   string
	query  url.Values
	token  string
	body   interface{}
}

// do 执行请求并解开信封。out 非空时把 data 解码进去；返回信封中的 message。
func (c *Client) do(ctx context.Context, req call, out interface{}) (string, error) {
	started := time.Now()

	var payload []byte
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return "", fmt.Errorf("%s: 序列化请求失败: %w", req.op, err)
		}
		payload = b
	}

	attempts := 1
	if req.method == http.MethodGet && c.retries > 0 {
		attempts += c.retries
	}

	var (
		resp *http.Response
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err = c.send(ctx, req, payload)
		if err == nil {
			break
		}
		if ctx.Err() != nil || attempt == attempts {
			break
		}
		wait := c.backoff * time.Duration(1<<uint(attempt-1))
		log.Warnw("API request failed, retrying", "op", req.op, "attempt", attempt, "wait", wait.String(), "error", err)
		c.metrics.retried(req.op)
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
	if err != nil {
		c.metrics.observe(req.op, outcomeTransport, started)
		return "", &TransportError{Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.observe(req.op, outcomeTransport, started)
		return "", &TransportError{Op: req.op, Err: fmt.Errorf("读取响应失败: %w", err)}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.observe(req.op, outcomeStatus, started)
		statusErr := &StatusError{Op: req.op, Code: resp.StatusCode}
		if decodeErr == nil {
			statusErr.Message = env.Message
		}
		return "", statusErr
	}
	if decodeErr != nil {
		c.metrics.observe(req.op, outcomeDecode, started)
		return "", fmt.Errorf("%s: 解析响应失败: %w", req.op, decodeErr)
	}
	if !env.Success {
		c.metrics.observe(req.op, outcomeAPI, started)
		return "", &APIError{Op: req.op, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			c.metrics.observe(req.op, outcomeDecode, started)
			return "", fmt.Errorf("%s: 解析响应数据失败: %w", req.op, err)
		}
	}
	c.metrics.observe(req.op, outcomeOK, started)
	return env.Message, nil
}

func (c *Client) send(ctx context.Context, req call, payload []byte) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ref, err := url.Parse(strings.TrimPrefix(req.path, "/"))
	if err != nil {
		return nil, err
	}
	target := c.baseURL.ResolveReference(ref)
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// 超时也归为传输层错误
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, urlErr.Err
		}
		return nil, err
	}
	return resp, nil
}

// escape 对路径段做转义
func escape(segment string) string {
	return url.PathEscape(segment)
}
