package enrichment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const (
	signatureHeader = "X-Bus-Signature"
	messageType     = "request"
	capability      = "venturefit.enrichment"
)

type BusConfig struct {
	BaseURL string
	AgentID string
	Target  string
	Secret  string
	Timeout time.Duration
}

// BusPublisher sends events as signed messages to an agent bus. The agent
// registers itself on the first publish and retries registration until it
// succeeds.
type BusPublisher struct {
	cfg  BusConfig
	http *http.Client

	mu         sync.Mutex
	registered bool
}

func NewBusPublisher(cfg BusConfig) (*BusPublisher, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("bus url is required")
	}
	if strings.TrimSpace(cfg.AgentID) == "" || strings.TrimSpace(cfg.Target) == "" {
		return nil, errors.New("agent id and target are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &BusPublisher{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (p *BusPublisher) Publish(ctx context.Context, ev Event) error {
	if err := p.ensureRegistered(ctx); err != nil {
		return fmt.Errorf("register agent: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	blob, err := json.Marshal(map[string]any{
		"to":              p.cfg.Target,
		"from":            p.cfg.AgentID,
		"conversation_id": ev.SessionID,
		"request_id":      "enrich-" + ev.ResultID,
		"type":            messageType,
		"body":            string(body),
		"meta":            map[string]any{"result_id": ev.ResultID, "primary_type": ev.PrimaryType},
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	out, err := p.post(ctx, "/v1/messages", blob, true)
	if err != nil {
		return err
	}
	var resp struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return fmt.Errorf("decode message response: %w", err)
	}
	if strings.TrimSpace(resp.MessageID) == "" {
		return errors.New("missing message_id in response")
	}
	return nil
}

func (p *BusPublisher) ensureRegistered(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.registered {
		return nil
	}
	if err := p.register(ctx); err != nil {
		return err
	}
	p.registered = true
	return nil
}

func (p *BusPublisher) register(ctx context.Context) error {
	blob, err := json.Marshal(map[string]any{
		"agent_id":     p.cfg.AgentID,
		"capabilities": []string{capability},
		"mode":         "push",
		"secret":       p.cfg.Secret,
	})
	if err != nil {
		return err
	}
	_, err = p.post(ctx, "/v1/agents/register", blob, false)
	return err
}

func (p *BusPublisher) post(ctx context.Context, path string, payload []byte, signed bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if signed {
		req.Header.Set(signatureHeader, Sign(p.cfg.Secret, payload))
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	blob, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return blob, fmt.Errorf("POST %s failed status=%d body=%s", path, resp.StatusCode, string(blob))
	}
	return blob, nil
}
