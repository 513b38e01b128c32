package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/scolarfaso/backend/internal/config"
)

// SMSSender delivers one message to one canonical phone number. Provider
// retries and delivery reports are the gateway's business, not ours.
type SMSSender interface {
	Send(to, body string) error
}

type SMSService struct {
	cfg    *config.Config
	client *http.Client
}

type aqilasPayload struct {
	From string   `json:"from"`
	To   []string `json:"to"`
	Text string   `json:"text"`
}

type clickSendMessage struct {
	Source string `json:"source"`
	Body   string `json:"body"`
	To     string `json:"to"`
	From   string `json:"from,omitempty"`
}

type clickSendPayload struct {
	Messages []clickSendMessage `json:"messages"`
}

func NewSMSService(cfg *config.Config) *SMSService {
	return &SMSService{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SMSService) Send(to, body string) error {
	if !s.cfg.SMSEnabled {
		return nil
	}
	switch strings.ToLower(s.cfg.SMSProvider) {
	case "aqilas":
		return s.sendViaAqilas(to, body)
	case "clicksend":
		return s.sendViaClickSend(to, body)
	default:
		return s.sendViaAqilas(to, body)
	}
}

// Aqilas API: POST https://www.aqilas.com/api/v1/sms
// Header: X-AUTH-TOKEN: <key>
// Body: {"from": <id>, "to": ["+226..."], "text": <msg>}
func (s *SMSService) sendViaAqilas(to, body string) error {
	if s.cfg.AqilasAPIKey == "" {
		return fmt.Errorf("aqilas api key missing")
	}
	payload := aqilasPayload{From: s.cfg.SMSFrom, To: []string{to}, Text: body}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequest("POST", "https://www.aqilas.com/api/v1/sms", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-AUTH-TOKEN", s.cfg.AqilasAPIKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("aqilas send failed: %d", resp.StatusCode)
	}
	return nil
}

// ClickSend fallback (legacy)
func (s *SMSService) sendViaClickSend(to, body string) error {
	if s.cfg.ClickSendUsername == "" || s.cfg.ClickSendAPIKey == "" {
		return fmt.Errorf("sms provider not configured")
	}
	msg := clickSendMessage{Source: "api", Body: body, To: to, From: s.cfg.ClickSendFrom}
	payload := clickSendPayload{Messages: []clickSendMessage{msg}}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequest("POST", "https://rest.clicksend.com/v3/sms/send", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.cfg.ClickSendUsername, s.cfg.ClickSendAPIKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms send failed with status %d", resp.StatusCode)
	}
	return nil
}
