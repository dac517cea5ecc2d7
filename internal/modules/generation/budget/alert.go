package budget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/lessongen/internal/platform/logger"
)

// Alert is the JSON body posted to the admin webhook.
type Alert struct {
	Event    string  `json:"event"`
	Scope    string  `json:"scope"`
	Day      string  `json:"day"`
	SpentUSD float64 `json:"spent_usd"`
	CapUSD   float64 `json:"cap_usd"`
}

// Alerter posts at most one alert per (scope, day) per process. Delivery is
// best-effort and asynchronous. Only the newest day's scopes are remembered.
type Alerter struct {
	log  *logger.Logger
	http *http.Client
	wg   sync.WaitGroup

	mu   sync.Mutex
	day  string
	sent map[string]struct{}
}

func NewAlerter(log *logger.Logger, hc *http.Client) *Alerter {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Alerter{log: log.With("service", "BudgetAlerter"), http: hc}
}

func (a *Alerter) Notify(webhook string, alert Alert) {
	if a == nil || strings.TrimSpace(webhook) == "" {
		return
	}
	if !a.claim(alert) {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.post(ctx, webhook, alert); err != nil {
			a.log.Warn("budget alert failed", "scope", alert.Scope, "day", alert.Day, "error", err)
		}
	}()
}

// claim reports whether alert is the first for its scope on its day. Days are
// YYYY-MM-DD so they order lexically; a newer day drops the previous set.
func (a *Alerter) claim(alert Alert) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case alert.Day < a.day:
		return false
	case alert.Day > a.day || a.sent == nil:
		a.day = alert.Day
		a.sent = make(map[string]struct{})
	}
	if _, dup := a.sent[alert.Scope]; dup {
		return false
	}
	a.sent[alert.Scope] = struct{}{}
	return true
}

// Wait blocks until in-flight alerts finish.
func (a *Alerter) Wait() {
	if a != nil {
		a.wg.Wait()
	}
}

func (a *Alerter) post(ctx context.Context, webhook string, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
