package alert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stockwatcher/internal/metrics"
	"stockwatcher/internal/quote"
	"stockwatcher/internal/store"
)

// Pusher delivers a rendered alert to an external channel.
type Pusher interface {
	Push(ctx context.Context, title, markdown string) error
}

// Service watches quote updates against price-threshold rules. A rule
// fires when the current price crosses its upper or lower bound, then
// goes quiet for the cooldown window.
type Service struct {
	store    *store.Store
	pusher   Pusher
	cooldown time.Duration
	log      *logrus.Entry

	mu        sync.Mutex
	rules     map[string]store.AlertRule
	lastFired map[string]time.Time
}

func NewService(st *store.Store, pusher Pusher, cooldown time.Duration) (*Service, error) {
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	s := &Service{
		store:     st,
		pusher:    pusher,
		cooldown:  cooldown,
		log:       logrus.WithField("component", "alert"),
		rules:     make(map[string]store.AlertRule),
		lastFired: make(map[string]time.Time),
	}
	if st != nil {
		rules, err := st.ListAlertRules()
		if err != nil {
			return nil, fmt.Errorf("load alert rules: %w", err)
		}
		for _, r := range rules {
			s.rules[r.ID] = r
		}
	}
	return s, nil
}

func (s *Service) AddRule(market quote.Market, code string, upper, lower float64) (store.AlertRule, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return store.AlertRule{}, fmt.Errorf("rule needs a code")
	}
	if upper <= 0 && lower <= 0 {
		return store.AlertRule{}, fmt.Errorf("rule needs an upper or lower bound")
	}
	if upper > 0 && lower > 0 && lower >= upper {
		return store.AlertRule{}, fmt.Errorf("lower bound %v must be below upper bound %v", lower, upper)
	}
	rule := store.AlertRule{
		ID:     uuid.NewString(),
		Market: string(market),
		Code:   code,
		Upper:  upper,
		Lower:  lower,
	}
	if s.store != nil {
		if err := s.store.InsertAlertRule(rule); err != nil {
			return store.AlertRule{}, err
		}
	}
	s.mu.Lock()
	s.rules[rule.ID] = rule
	s.mu.Unlock()
	return rule, nil
}

func (s *Service) DeleteRule(id string) (bool, error) {
	s.mu.Lock()
	_, known := s.rules[id]
	delete(s.rules, id)
	delete(s.lastFired, id)
	s.mu.Unlock()
	if s.store != nil {
		deleted, err := s.store.DeleteAlertRule(id)
		if err != nil {
			return false, err
		}
		return deleted, nil
	}
	return known, nil
}

func (s *Service) Rules() []store.AlertRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	return out
}

// OnQuoteUpdate implements notify.Listener.
func (s *Service) OnQuoteUpdate(market quote.Market, q quote.Quote) {
	code := strings.ToUpper(q.Code)
	s.mu.Lock()
	var matched []store.AlertRule
	for _, r := range s.rules {
		if r.Market == string(market) && strings.ToUpper(r.Code) == code {
			matched = append(matched, r)
		}
	}
	s.mu.Unlock()
	for _, r := range matched {
		s.evaluate(r, market, q)
	}
}

// OnQuoteDelete implements notify.Listener. Rules outlive watchlist
// membership, so nothing to do.
func (s *Service) OnQuoteDelete(quote.Market, string) {}

func (s *Service) evaluate(r store.AlertRule, market quote.Market, q quote.Quote) {
	var direction string
	var bound float64
	switch {
	case r.Upper > 0 && q.Current >= r.Upper:
		direction, bound = "above", r.Upper
	case r.Lower > 0 && q.Current <= r.Lower:
		direction, bound = "below", r.Lower
	default:
		return
	}

	now := time.Now()
	s.mu.Lock()
	if last, ok := s.lastFired[r.ID]; ok && now.Sub(last) < s.cooldown {
		s.mu.Unlock()
		return
	}
	s.lastFired[r.ID] = now
	s.mu.Unlock()

	msg := fmt.Sprintf("%s (%s) at %.2f crossed %s bound %.2f", q.Name, q.Code, q.Current, direction, bound)
	metrics.AlertsFired.Inc()
	if s.store != nil {
		evt := store.AlertEvent{
			RuleID:    r.ID,
			Market:    string(market),
			Code:      q.Code,
			Price:     q.Current,
			Direction: direction,
			Message:   msg,
			TS:        now.Unix(),
		}
		if err := s.store.InsertAlertEvent(evt); err != nil {
			s.log.WithError(err).Error("insert alert event")
		}
	}
	if s.pusher != nil {
		title := fmt.Sprintf("Price alert: %s", q.Code)
		markdown := fmt.Sprintf("### %s\n\n- price: **%.2f**\n- bound: %.2f (%s)\n- at: %s", msg, q.Current, bound, direction, q.UpdateAt)
		if err := s.pusher.Push(context.Background(), title, markdown); err != nil {
			s.log.WithError(err).Error("push alert")
		}
	}
}
