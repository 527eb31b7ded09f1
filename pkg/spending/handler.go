package spending

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/projectcapital/capital/pkg/api"
	"github.com/projectcapital/capital/pkg/endpoint"
)

const (
	defaultLimit = 20
	maxLimit     = 500
)

// Handler exposes a Store over the backend query routes.
type Handler struct {
	store       Store
	defaultUser string
	logger      *slog.Logger
}

// NewHandler creates a handler. defaultUser answers /api/transactions when
// the request names no user.
func NewHandler(store Store, defaultUser string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:       store,
		defaultUser: defaultUser,
		logger:      logger.With("component", "spending"),
	}
}

// Register mounts the query routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/:user"+endpoint.CategoryTotals.Path, h.categoryTotals)
	r.GET("/:user"+endpoint.CategoryCumulative.Path, h.categoryCumulative)
	r.GET("/:user"+endpoint.CombinedCumulative.Path, h.combinedCumulative)
	r.GET("/api/transactions", h.transactions)
}

func (h *Handler) categoryTotals(c *gin.Context) {
	h.serve(c, endpoint.CategoryTotals, func(ctx context.Context, f Filter) ([]api.RawRecord, error) {
		totals, err := h.store.CategoryTotals(ctx, f)
		if err != nil {
			return nil, err
		}
		out := make([]api.RawRecord, 0, len(totals))
		for _, t := range totals {
			out = append(out, record(
				field("category", string(t.Category)),
				amount("total", t.Total),
			))
		}
		return out, nil
	})
}

func (h *Handler) categoryCumulative(c *gin.Context) {
	h.serve(c, endpoint.CategoryCumulative, func(ctx context.Context, f Filter) ([]api.RawRecord, error) {
		days, err := h.store.CategoryCumulative(ctx, f)
		if err != nil {
			return nil, err
		}
		out := make([]api.RawRecord, 0, len(days))
		for _, d := range days {
			fields := []api.Field{field("date", d.Date.Format(endpoint.DateLayout))}
			for _, t := range d.Totals {
				fields = append(fields, amount(string(t.Category), t.Total))
			}
			out = append(out, record(fields...))
		}
		return out, nil
	})
}

func (h *Handler) combinedCumulative(c *gin.Context) {
	h.serve(c, endpoint.CombinedCumulative, func(ctx context.Context, f Filter) ([]api.RawRecord, error) {
		days, err := h.store.CombinedCumulative(ctx, f)
		if err != nil {
			return nil, err
		}
		out := make([]api.RawRecord, 0, len(days))
		for _, d := range days {
			out = append(out, record(
				field("date", d.Date.Format(endpoint.DateLayout)),
				amount("cummulative_total", d.Total),
			))
		}
		return out, nil
	})
}

// serve validates the request into a query and writes the records produce
// returns.
func (h *Handler) serve(c *gin.Context, t endpoint.Template, produce func(context.Context, Filter) ([]api.RawRecord, error)) {
	q, err := endpoint.New(t, c.Param("user"), c.QueryArray("categories"), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := produce(c.Request.Context(), FilterFor(q))
	if err != nil {
		h.logger.Error("spending query failed", "template", t.Name, "user", q.User, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, records)
}

type transactionView struct {
	ID       string  `json:"id"`
	Merchant string  `json:"merchant"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
}

func (h *Handler) transactions(c *gin.Context) {
	user := c.DefaultQuery("user", h.defaultUser)
	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLimit)
	}

	txs, err := h.store.Transactions(c.Request.Context(), user, limit)
	if err != nil {
		h.logger.Error("listing transactions failed", "user", user, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionView{
			ID:       t.ID,
			Merchant: t.Merchant,
			Category: string(t.Category),
			Date:     t.Date.Format(endpoint.DateLayout),
			Amount:   t.Amount.InexactFloat64(),
		})
	}
	c.JSON(http.StatusOK, out)
}

func record(fields ...api.Field) api.RawRecord {
	return api.RawRecord{Fields: fields}
}

func field(key, value string) api.Field {
	b, _ := json.Marshal(value)
	return api.Field{Key: key, Value: b}
}

// amount writes d as a bare JSON number.
func amount(key string, d decimal.Decimal) api.Field {
	return api.Field{Key: key, Value: json.RawMessage(d.String())}
}
