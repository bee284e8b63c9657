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

	"github.com/sirupsen/logrus"

	"qchat/internal/domain"
)

// Endpoint paths on the backend.
const (
	PathKeyExchange    = "/api/key-exchange"
	PathSendMessage    = "/api/send-message"
	PathDecryptMessage = "/api/decrypt-message"
	PathSessions       = "/api/sessions"
	PathHealth         = "/health"
	PathWebSocket      = "/ws/"
)

// maxErrorBody bounds how much of a non-2xx body is read for its detail.
const maxErrorBody = 64 << 10

// StatusError is returned for non-2xx responses. Detail holds the backend's
// "detail" field when the body carried a string one.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Status string
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Status)
}

// HTTP is the JSON-over-HTTP backend client.
type HTTP struct {
	Base string
	HTTP *http.Client
	Log  logrus.FieldLogger
}

// NewHTTP returns a client for base. A nil httpClient selects
// http.DefaultClient.
func NewHTTP(base string, httpClient *http.Client) *HTTP {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTP{
		Base: strings.TrimRight(base, "/"),
		HTTP: httpClient,
		Log:  logrus.StandardLogger(),
	}
}

func (c *HTTP) KeyExchange(
	ctx context.Context,
	request domain.KeyExchangeRequest,
) (domain.KeyExchangeResponse, error) {
	var out domain.KeyExchangeResponse
	if err := c.do(ctx, http.MethodPost, PathKeyExchange, request, &out); err != nil {
		return domain.KeyExchangeResponse{}, err
	}
	return out, nil
}

func (c *HTTP) SendMessage(
	ctx context.Context,
	sessionID domain.SessionID,
	sender domain.Sender,
	message string,
) (domain.ChatMessage, error) {
	var out domain.SendMessageResponse
	in := domain.SendMessageRequest{SessionID: sessionID, Sender: sender, Message: message}
	if err := c.do(ctx, http.MethodPost, PathSendMessage, in, &out); err != nil {
		return domain.ChatMessage{}, err
	}
	if !out.Success {
		return domain.ChatMessage{}, fmt.Errorf("send message: %s", orUnknown(out.Error))
	}
	if out.EncryptedMessage == nil {
		return domain.ChatMessage{}, nil
	}
	return *out.EncryptedMessage, nil
}

func (c *HTTP) DecryptMessage(
	ctx context.Context,
	sessionID domain.SessionID,
	ciphertext string,
) (string, error) {
	var out domain.DecryptMessageResponse
	in := domain.DecryptMessageRequest{SessionID: sessionID, Ciphertext: ciphertext}
	if err := c.do(ctx, http.MethodPost, PathDecryptMessage, in, &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", fmt.Errorf("decrypt message: %s", orUnknown(out.Error))
	}
	return out.Plaintext, nil
}

func (c *HTTP) ListSessions(ctx context.Context) ([]domain.SessionInfo, error) {
	var out []domain.SessionInfo
	if err := c.do(ctx, http.MethodGet, PathSessions, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) GetSession(ctx context.Context, sessionID domain.SessionID) (domain.SessionDetail, error) {
	var out domain.SessionDetail
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID), nil, &out); err != nil {
		return domain.SessionDetail{}, err
	}
	return out, nil
}

func (c *HTTP) DeleteSession(ctx context.Context, sessionID domain.SessionID) error {
	return c.do(ctx, http.MethodDelete, sessionPath(sessionID), nil, nil)
}

func (c *HTTP) Health(ctx context.Context) (domain.Health, error) {
	var out domain.Health
	if err := c.do(ctx, http.MethodGet, PathHealth, nil, &out); err != nil {
		return domain.Health{}, err
	}
	return out, nil
}

func sessionPath(id domain.SessionID) string {
	return PathSessions + "/" + url.PathEscape(id.String())
}

func (c *HTTP) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return err
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.logger().WithFields(logrus.Fields{
		"function": "do",
		"method":   method,
		"path":     path,
	}).Debug("backend request")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &domain.TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// statusError builds a StatusError, pulling a string "detail" out of the
// body when present.
func statusError(method, path string, resp *http.Response) error {
	se := &StatusError{Method: method, Path: path, Code: resp.StatusCode, Status: resp.Status}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil && len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil {
			se.Detail = s
		}
	}
	return se
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

func (c *HTTP) logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown error"
	}
	return s
}

// WebSocketURL derives the channel URL for sessionID. When wsBase is empty
// it is derived from apiBase by switching http to ws and https to wss.
func WebSocketURL(apiBase, wsBase string, sessionID domain.SessionID) (string, error) {
	base := strings.TrimRight(wsBase, "/")
	if base == "" {
		u, err := url.Parse(apiBase)
		if err != nil {
			return "", fmt.Errorf("parse api base %q: %w", apiBase, err)
		}
		switch u.Scheme {
		case "http":
			u.Scheme = "ws"
		case "https":
			u.Scheme = "wss"
		case "ws", "wss":
		default:
			return "", fmt.Errorf("cannot derive websocket url from scheme %q", u.Scheme)
		}
		base = strings.TrimRight(u.String(), "/")
	}
	return base + PathWebSocket + url.PathEscape(sessionID.String()), nil
}

var _ domain.BackendClient = (*HTTP)(nil)
