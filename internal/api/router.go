package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"

	"stockwatcher/internal/alert"
	"stockwatcher/internal/market"
	"stockwatcher/internal/quote"
	"stockwatcher/internal/store"
)

type watchRequest struct {
	Market string `json:"market"`
	Code   string `json:"code"`
}

type ruleRequest struct {
	Market string  `json:"market"`
	Code   string  `json:"code"`
	Upper  float64 `json:"upper"`
	Lower  float64 `json:"lower"`
}

func RegisterRoutes(h *server.Hertz, mkt *market.Service, alertSvc *alert.Service, st *store.Store) {
	h.GET("/healthz", func(_ context.Context, c *app.RequestContext) {
		c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	h.GET("/api/v1/quotes", func(ctx context.Context, c *app.RequestContext) {
		if mkt == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "market service not configured",
			})
			return
		}
		m, err := quote.ParseMarket(string(c.Query("market")))
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		codes := splitCodes(string(c.Query("codes")))
		if len(codes) == 0 {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": "codes is required",
			})
			return
		}
		quotes, err := mkt.Quotes(ctx, m, codes)
		if err != nil {
			c.JSON(upstreamStatus(err), map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, map[string]any{
			"ok":     true,
			"quotes": quotes,
		})
	})

	h.GET("/api/v1/suggest", func(ctx context.Context, c *app.RequestContext) {
		if mkt == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "market service not configured",
			})
			return
		}
		q := strings.TrimSpace(string(c.Query("q")))
		if q == "" {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": "q is required",
			})
			return
		}
		suggestions, err := mkt.Suggest(ctx, q)
		if err != nil {
			c.JSON(http.StatusBadGateway, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, map[string]any{
			"ok":    true,
			"items": suggestions,
		})
	})

	h.GET("/api/v1/watchlist", func(_ context.Context, c *app.RequestContext) {
		if st == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "store not configured",
			})
			return
		}
		m := strings.TrimSpace(string(c.Query("market")))
		if m != "" {
			if _, err := quote.ParseMarket(m); err != nil {
				c.JSON(http.StatusBadRequest, map[string]any{
					"ok":    false,
					"error": err.Error(),
				})
				return
			}
		}
		items, err := st.ListWatch(m)
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, map[string]any{
			"ok":    true,
			"items": items,
		})
	})

	h.POST("/api/v1/watchlist", func(ctx context.Context, c *app.RequestContext) {
		if st == nil || mkt == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "store or market not configured",
			})
			return
		}
		var req watchRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": "invalid json body",
			})
			return
		}
		m, err := quote.ParseMarket(req.Market)
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		code := strings.ToUpper(strings.TrimSpace(req.Code))
		if code == "" {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": "code is required",
			})
			return
		}
		// The upstream must know the code before it enters the watchlist.
		q, err := mkt.ValidateCode(ctx, m, code)
		if err != nil {
			c.JSON(upstreamStatus(err), map[string]any{
				"ok":    false,
				"error": fmt.Sprintf("validate %s/%s: %v", m, code, err),
			})
			return
		}
		item := store.WatchItem{Market: string(m), Code: code, Name: q.Name}
		if err := st.AddWatch(item); err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, map[string]any{
			"ok":    true,
			"item":  item,
			"quote": q,
		})
	})

	h.DELETE("/api/v1/watchlist", func(_ context.Context, c *app.RequestContext) {
		if st == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "store not configured",
			})
			return
		}
		m, err := quote.ParseMarket(string(c.Query("market")))
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		code := strings.ToUpper(strings.TrimSpace(string(c.Query("code"))))
		if code == "" {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": "code is required",
			})
			return
		}
		removed, err := st.RemoveWatch(string(m), code)
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		if !removed {
			c.JSON(http.StatusNotFound, map[string]any{
				"ok":    false,
				"error": "not watched",
			})
			return
		}
		if mkt != nil {
			mkt.Evict(m, code)
		}
		c.JSON(http.StatusOK, map[string]any{"ok": true})
	})

	h.GET("/api/v1/snapshots", func(_ context.Context, c *app.RequestContext) {
		if st == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "store not configured",
			})
			return
		}
		m, err := quote.ParseMarket(string(c.Query("market")))
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		code := strings.ToUpper(strings.TrimSpace(string(c.Query("code"))))
		if code == "" {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": "code is required",
			})
			return
		}
		limit, err := parseLimit(c.Query("limit"))
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		items, err := st.RecentSnapshots(string(m), code, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, map[string]any{
			"ok":    true,
			"items": items,
		})
	})

	h.GET("/api/v1/alerts/rules", func(_ context.Context, c *app.RequestContext) {
		if alertSvc == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "alert service not configured",
			})
			return
		}
		c.JSON(http.StatusOK, map[string]any{
			"ok":    true,
			"items": alertSvc.Rules(),
		})
	})

	h.POST("/api/v1/alerts/rules", func(_ context.Context, c *app.RequestContext) {
		if alertSvc == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "alert service not configured",
			})
			return
		}
		var req ruleRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": "invalid json body",
			})
			return
		}
		m, err := quote.ParseMarket(req.Market)
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		rule, err := alertSvc.AddRule(m, req.Code, req.Upper, req.Lower)
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, map[string]any{
			"ok":   true,
			"rule": rule,
		})
	})

	h.DELETE("/api/v1/alerts/rules/:id", func(_ context.Context, c *app.RequestContext) {
		if alertSvc == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "alert service not configured",
			})
			return
		}
		id := c.Param("id")
		deleted, err := alertSvc.DeleteRule(id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, map[string]any{
				"ok":    false,
				"error": "rule not found",
			})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"ok": true})
	})

	h.GET("/api/v1/alerts/events", func(_ context.Context, c *app.RequestContext) {
		if st == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "store not configured",
			})
			return
		}
		limit, err := parseLimit(c.Query("limit"))
		if err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		items, err := st.RecentAlertEvents(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, map[string]any{
			"ok":    true,
			"items": items,
		})
	})
}

// upstreamStatus maps a fetch error onto an HTTP status: a pair no
// provider serves is the caller's mistake, anything else is a gateway
// problem.
func upstreamStatus(err error) int {
	if errors.Is(err, quote.ErrUnsupported) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 200, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if v > 1000 {
		return 1000, nil
	}
	return v, nil
}

func splitCodes(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
