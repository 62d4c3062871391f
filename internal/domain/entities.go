// Package domain holds the canonical data model and ports for the LEOP
// server: forecast samples, plan entries, pipeline payloads, and the error
// taxonomy shared across adapters.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrQueueClosed     = errors.New("queue closed")
	ErrQueueFull       = errors.New("queue full")
	ErrPoolFull        = errors.New("worker pool full")
	ErrUpstreamStatus  = errors.New("upstream status")
	ErrInternal        = errors.New("internal error")
)

// Action is the dispatch decision for a single plan interval.
type Action int

const (
	ActionBuyFromGrid Action = iota
	ActionSellToGrid
	ActionChargeBattery
	ActionDischargeBattery
	ActionDirectUse
	ActionIdle
)

var actionNames = [...]string{
	"BUY_FROM_GRID",
	"SELL_TO_GRID",
	"CHARGE_BATTERY",
	"DISCHARGE_BATTERY",
	"DIRECT_USE",
	"IDLE",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "UNKNOWN"
	}
	return actionNames[a]
}

// WeatherSample is one hourly forecast interval. Range tags mirror the
// upstream contract; samples outside them are dropped at decode time.
type WeatherSample struct {
	Timestamp     time.Time
	IrradianceWM2 float64 `validate:"gte=0,lte=1500"`
	CloudCoverPct float64 `validate:"gte=0,lte=100"`
	TemperatureC  float64 `validate:"gte=-50,lte=50"`
	WindSpeedMS   float64 `validate:"gte=0"`
	HumidityPct   float64 `validate:"gte=0,lte=100"`
}

// PriceSample is one spot-price delivery interval for a bidding zone.
type PriceSample struct {
	IntervalStart time.Time
	IntervalEnd   time.Time
	PriceSEKKWh   float64 `validate:"gte=-1,lte=10"`
	PriceEURKWh   float64
	ExchangeRate  float64
}

// PlanInterval is one decided interval of an energy plan.
// Sign convention: GridFlowKWh > 0 imports from the grid, BatteryFlowKWh > 0
// charges the battery.
type PlanInterval struct {
	Timestamp        time.Time
	Action           Action
	ProductionKWh    float64
	ConsumptionKWh   float64
	GridFlowKWh      float64
	BatteryFlowKWh   float64
	SpotPriceSEKKWh  float64
	EstimatedCostSEK float64
	BatterySoCPct    float64
}

// Plan is the full dispatch plan for one request.
type Plan struct {
	Intervals      []PlanInterval
	TotalCostSEK   float64
	TotalImportKWh float64
	TotalExportKWh float64
	GeneratedAt    time.Time
}

// SolarConfig describes the PV installation. Fixed at engine construction.
type SolarConfig struct {
	PanelEfficiency float64 `validate:"gte=0,lte=1"`
	PanelAreaM2     float64 `validate:"gte=0"`
	OrientationDeg  float64
	TiltDeg         float64
	PeakPowerKW     float64 `validate:"gte=0"`
}

// BatteryConfig describes the storage system. CurrentSoCPct seeds the
// engine's per-run state; all other fields are constants.
type BatteryConfig struct {
	CapacityKWh         float64 `validate:"gte=0"`
	MaxChargeKW         float64 `validate:"gte=0"`
	MaxDischargeKW      float64 `validate:"gte=0"`
	MinSoCPct           float64 `validate:"gte=0,lte=100"`
	MaxSoCPct           float64 `validate:"gte=0,lte=100"`
	CurrentSoCPct       float64 `validate:"gte=0,lte=100"`
	RoundtripEfficiency float64 `validate:"gte=0,lte=1"`
}

// ConsumptionProfile describes household load.
type ConsumptionProfile struct {
	BaseLoadKW  float64 `validate:"gte=0"`
	PeakLoadKW  float64 `validate:"gte=0"`
	AvgDailyKWh float64 `validate:"gte=0"`
}

// ClientConn is the pipeline's view of an accepted client connection.
// The compute stage writes the finished plan text through it and then
// releases the connection back to its owning worker.
type ClientConn interface {
	// WriteString sends raw bytes to the client.
	WriteString(s string) error
	// Release signals the owning worker that processing finished and the
	// connection should transition back to READY. Safe to call from any
	// goroutine; the transition itself happens on the worker.
	Release()
}

// PlanRequest enters the pipeline when a worker parses a forecast command.
// Immutable after creation.
type PlanRequest struct {
	ID       string
	Location string
	Region   string
	Conn     ClientConn
}

// FetchedBundle carries the raw upstream bodies for one request. Either
// body may be empty on partial fetch failure.
type FetchedBundle struct {
	Request      PlanRequest
	WeatherBytes []byte
	PriceBytes   []byte
}

// ParsedBundle carries the decoded series for one request. The series need
// not be equal length; the engine aligns them positionally up to min(len).
type ParsedBundle struct {
	Request PlanRequest
	Weather []WeatherSample
	Prices  []PriceSample
}

// Fetcher retrieves one URL, retrying transient failures internally.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// FetchResult is the terminal outcome of a fetch: final status plus body.
type FetchResult struct {
	Status int
	Body   []byte
}

// BodyCache stores raw upstream bodies keyed by URL with a TTL.
// Implementations must be safe for concurrent use.
type BodyCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration)
}
