package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mpawlak/ksewatch/internal/httputil"
	"github.com/mpawlak/ksewatch/internal/metrics"
	"github.com/mpawlak/ksewatch/internal/models"
)

const (
	DefaultBaseURL = "https://api.raporty.pse.pl/api"

	// Report entities on the PSE API. Renewables and balancing-market
	// generation publish quarter-hourly, the rest hourly.
	EntityRenewables = "his-wlk-cal"
	EntityLoad       = "kse-load"
	EntityBaseload   = "gen-jw-rb"
	EntityExchange   = "kse-wym"
	EntityReserve    = "pk5l-wtz"
)

const dtimeLayout = "2006-01-02 15:04:05"

type PSEClient struct {
	baseURL string
	client  *http.Client
}

// NewPSEClient builds a client for the PSE reports API. baseURL overrides
// the production endpoint, empty means default.
func NewPSEClient(baseURL string) *PSEClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &PSEClient{
		baseURL: baseURL,
		client:  httputil.NewClient(),
	}
}

func (c *PSEClient) fetch(entity, rawURL string) ([]byte, error) {
	var body []byte
	start := time.Now()

	operation := func() error {
		req, err := http.NewRequest(http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("fetch %s: %w", entity, err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", httputil.UserAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("fetch %s: %w", entity, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("fetch %s: status %d", entity, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch %s: status %d: %s", entity, resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read %s body: %w", entity, err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	err := backoff.Retry(operation, bo)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.PSEAPICallsTotal.WithLabelValues(entity, status).Inc()
	metrics.PSEAPILatency.WithLabelValues(entity).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *PSEClient) fetchDay(entity string, date time.Time) ([]byte, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("business_date eq '%s'", date.Format("2006-01-02")))
	return c.fetch(entity, fmt.Sprintf("%s/%s?%s", c.baseURL, entity, q.Encode()))
}

type loadResponse struct {
	Value []loadRow `json:"value"`
}

type loadRow struct {
	BusinessDate string   `json:"business_date"`
	Dtime        string   `json:"dtime"`
	Load         *float64 `json:"zap_kse"`
}

func (c *PSEClient) FetchLoad(date time.Time) ([]models.LoadHour, error) {
	body, err := c.fetchDay(EntityLoad, date)
	if err != nil {
		return nil, err
	}

	var data loadResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", EntityLoad, err)
	}

	var results []models.LoadHour
	for _, row := range data.Value {
		if row.Load == nil {
			continue
		}
		t, err := time.Parse(dtimeLayout, row.Dtime)
		if err != nil {
			continue
		}
		results = append(results, models.LoadHour{
			BusinessDate: date,
			Hour:         t.Hour(),
			LoadMW:       *row.Load,
		})
	}
	return results, nil
}

type renewableResponse struct {
	Value []renewableRow `json:"value"`
}

type renewableRow struct {
	BusinessDate string   `json:"business_date"`
	Dtime        string   `json:"dtime"`
	PV           *float64 `json:"pv"`
	Wind         *float64 `json:"wi"`
}

// FetchRenewables returns hourly PV and wind generation. The report
// publishes quarter-hourly rows, so each hour is the mean of its quarters.
func (c *PSEClient) FetchRenewables(date time.Time) ([]models.RenewableHour, error) {
	body, err := c.fetchDay(EntityRenewables, date)
	if err != nil {
		return nil, err
	}

	var data renewableResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", EntityRenewables, err)
	}

	type acc struct {
		pv, wind float64
		n        int
	}
	hours := make(map[int]*acc)
	for _, row := range data.Value {
		if row.PV == nil || row.Wind == nil {
			continue
		}
		t, err := time.Parse(dtimeLayout, row.Dtime)
		if err != nil {
			continue
		}
		a := hours[t.Hour()]
		if a == nil {
			a = &acc{}
			hours[t.Hour()] = a
		}
		a.pv += *row.PV
		a.wind += *row.Wind
		a.n++
	}

	var results []models.RenewableHour
	for h := 0; h < 24; h++ {
		a, ok := hours[h]
		if !ok {
			continue
		}
		results = append(results, models.RenewableHour{
			BusinessDate: date,
			Hour:         h,
			PVMW:         a.pv / float64(a.n),
			WindMW:       a.wind / float64(a.n),
		})
	}
	return results, nil
}

type baseloadResponse struct {
	Value []baseloadRow `json:"value"`
}

type baseloadRow struct {
	BusinessDate string   `json:"business_date"`
	Dtime        string   `json:"dtime"`
	Gen          *float64 `json:"gen_jw_rb"`
}

func (c *PSEClient) FetchBaseload(date time.Time) ([]models.BaseloadQuarter, error) {
	body, err := c.fetchDay(EntityBaseload, date)
	if err != nil {
		return nil, err
	}

	var data baseloadResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", EntityBaseload, err)
	}

	var results []models.BaseloadQuarter
	for _, row := range data.Value {
		if row.Gen == nil {
			continue
		}
		t, err := time.Parse(dtimeLayout, row.Dtime)
		if err != nil {
			continue
		}
		results = append(results, models.BaseloadQuarter{
			BusinessDate: date,
			Quarter:      t.Hour()*4 + t.Minute()/15,
			GenMW:        *row.Gen,
		})
	}
	return results, nil
}

type exchangeResponse struct {
	Value []exchangeRow `json:"value"`
}

type exchangeRow struct {
	BusinessDate string   `json:"business_date"`
	Dtime        string   `json:"dtime"`
	Balance      *float64 `json:"saldo_wym"`
}

func (c *PSEClient) FetchExchange(date time.Time) ([]models.ExchangeHour, error) {
	body, err := c.fetchDay(EntityExchange, date)
	if err != nil {
		return nil, err
	}

	var data exchangeResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", EntityExchange, err)
	}

	var results []models.ExchangeHour
	for _, row := range data.Value {
		if row.Balance == nil {
			continue
		}
		t, err := time.Parse(dtimeLayout, row.Dtime)
		if err != nil {
			continue
		}
		results = append(results, models.ExchangeHour{
			BusinessDate: date,
			Hour:         t.Hour(),
			ExchangeMW:   *row.Balance,
		})
	}
	return results, nil
}

type reserveResponse struct {
	Value []reserveRow `json:"value"`
}

type reserveRow struct {
	BusinessDate string   `json:"business_date"`
	Dtime        string   `json:"dtime"`
	Available    *float64 `json:"rez_dysp"`
	Required     *float64 `json:"rez_wym"`
}

// FetchReservePlan returns the coordination plan starting at from. The
// report spans several consecutive days; slots index hours from the
// earliest business date in the response.
func (c *PSEClient) FetchReservePlan(from time.Time) (*models.ReservePlan, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("business_date ge '%s'", from.Format("2006-01-02")))
	body, err := c.fetch(EntityReserve, fmt.Sprintf("%s/%s?%s", c.baseURL, EntityReserve, q.Encode()))
	if err != nil {
		return nil, err
	}

	var data reserveResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", EntityReserve, err)
	}
	if len(data.Value) == 0 {
		return nil, fmt.Errorf("%s: empty plan", EntityReserve)
	}

	var planStart time.Time
	for _, row := range data.Value {
		d, err := time.Parse("2006-01-02", row.BusinessDate)
		if err != nil {
			continue
		}
		if planStart.IsZero() || d.Before(planStart) {
			planStart = d
		}
	}
	if planStart.IsZero() {
		return nil, fmt.Errorf("%s: no parseable business dates", EntityReserve)
	}

	plan := &models.ReservePlan{PlanDate: planStart, FetchedAt: time.Now().UTC()}
	for _, row := range data.Value {
		if row.Available == nil || row.Required == nil {
			continue
		}
		d, err := time.Parse("2006-01-02", row.BusinessDate)
		if err != nil {
			continue
		}
		t, err := time.Parse(dtimeLayout, row.Dtime)
		if err != nil {
			continue
		}
		dayOffset := int(d.Sub(planStart).Hours() / 24)
		plan.Slots = append(plan.Slots, models.ReserveSlot{
			Slot:        dayOffset*24 + t.Hour(),
			AvailableMW: *row.Available,
			RequiredMW:  *row.Required,
		})
	}
	return plan, nil
}
