package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gridguard/leop-server/internal/adapter/decoder"
	"github.com/gridguard/leop-server/internal/adapter/fetcher"
	"github.com/gridguard/leop-server/internal/adapter/observability"
	"github.com/gridguard/leop-server/internal/domain"
	"github.com/gridguard/leop-server/internal/geo"
	"github.com/gridguard/leop-server/internal/planner"
)

const fetchFailedNotice = "ERROR: Failed to fetch forecast data\n> "

// Options sizes the pipeline. Zero values are replaced with the listed
// defaults so tests can construct a pipeline tersely.
type Options struct {
	QueueCapacity  int           // default 100
	FetchWorkers   int           // default 3
	ParseWorkers   int           // default 3
	ComputeWorkers int           // default 3
	CacheTTL       time.Duration // default 5m
}

func (o Options) withDefaults() Options {
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = 100
	}
	if o.FetchWorkers <= 0 {
		o.FetchWorkers = 3
	}
	if o.ParseWorkers <= 0 {
		o.ParseWorkers = 3
	}
	if o.ComputeWorkers <= 0 {
		o.ComputeWorkers = 3
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 5 * time.Minute
	}
	return o
}

// Pipeline runs the Fetch → Parse → Compute stages over three bounded
// queues. Requests enter through Submit; finished plan text leaves
// through the request's ClientConn.
type Pipeline struct {
	fetcher domain.Fetcher
	cache   domain.BodyCache // nil disables caching
	engine  *planner.Engine
	opts    Options

	ingress *Queue[domain.PlanRequest]
	fetched *Queue[domain.FetchedBundle]
	parsed  *Queue[domain.ParsedBundle]

	fetchStage   *Stage[domain.PlanRequest, domain.FetchedBundle]
	parseStage   *Stage[domain.FetchedBundle, domain.ParsedBundle]
	computeStage *Stage[domain.ParsedBundle, struct{}]

	now func() time.Time // injectable clock for the price URL date
}

// New assembles a stopped pipeline. cache may be nil.
func New(f domain.Fetcher, cache domain.BodyCache, engine *planner.Engine, opts Options) *Pipeline {
	opts = opts.withDefaults()
	p := &Pipeline{
		fetcher: f,
		cache:   cache,
		engine:  engine,
		opts:    opts,
		ingress: NewNamedQueue[domain.PlanRequest]("ingress", opts.QueueCapacity),
		fetched: NewNamedQueue[domain.FetchedBundle]("fetched", opts.QueueCapacity),
		parsed:  NewNamedQueue[domain.ParsedBundle]("parsed", opts.QueueCapacity),
		now:     time.Now,
	}
	p.fetchStage = NewStage("fetch", p.ingress, p.fetched, opts.FetchWorkers, p.fetch)
	p.parseStage = NewStage("parse", p.fetched, p.parsed, opts.ParseWorkers, p.parse)
	p.computeStage = NewStage[domain.ParsedBundle, struct{}]("compute", p.parsed, nil, opts.ComputeWorkers, p.compute)
	return p
}

// Start launches all stage workers.
func (p *Pipeline) Start(ctx context.Context) {
	p.fetchStage.Start(ctx)
	p.parseStage.Start(ctx)
	p.computeStage.Start(ctx)
	slog.Info("pipeline started",
		slog.Int("queue_capacity", p.opts.QueueCapacity),
		slog.Int("fetch_workers", p.opts.FetchWorkers),
		slog.Int("parse_workers", p.opts.ParseWorkers),
		slog.Int("compute_workers", p.opts.ComputeWorkers))
}

// Submit admits a request without blocking. Returns domain.ErrQueueFull
// when the ingress queue is at capacity and domain.ErrQueueClosed after
// Shutdown.
func (p *Pipeline) Submit(req domain.PlanRequest) error {
	if err := p.ingress.TryPush(req); err != nil {
		if errors.Is(err, domain.ErrQueueFull) {
			observability.RequestsRejectedTotal.Inc()
		}
		return err
	}
	observability.RequestsSubmittedTotal.Inc()
	slog.Info("request submitted",
		slog.String("request_id", req.ID),
		slog.String("location", req.Location),
		slog.String("region", req.Region))
	return nil
}

// Shutdown closes the ingress queue and waits for each stage to drain in
// order. In-flight requests complete; new submits fail.
func (p *Pipeline) Shutdown() {
	p.ingress.Close()
	p.fetchStage.Wait()
	p.parseStage.Wait()
	p.computeStage.Wait()
	slog.Info("pipeline drained")
}

// QueueStats is a point-in-time snapshot of queue depths for the admin
// status endpoint.
type QueueStats struct {
	IngressDepth int `json:"ingress_depth"`
	FetchedDepth int `json:"fetched_depth"`
	ParsedDepth  int `json:"parsed_depth"`
}

// Stats reports current queue depths.
func (p *Pipeline) Stats() QueueStats {
	return QueueStats{
		IngressDepth: p.ingress.Len(),
		FetchedDepth: p.fetched.Len(),
		ParsedDepth:  p.parsed.Len(),
	}
}

// fetch resolves the request's location, retrieves the weather and
// spot-price bodies, and forwards whatever arrived. A partial failure
// still forwards; only a total failure short-circuits with an error
// notice to the client.
func (p *Pipeline) fetch(ctx context.Context, req domain.PlanRequest) (domain.FetchedBundle, bool) {
	loc := geo.Resolve(req.Location)

	weatherBody := p.fetchBody(ctx, req.ID, fetcher.BuildWeatherURL(loc.Lat, loc.Lon, loc.Timezone))

	var priceBody []byte
	if geo.ValidRegion(req.Region) {
		priceBody = p.fetchBody(ctx, req.ID, fetcher.BuildSpotPriceURL(req.Region, p.now()))
	} else {
		slog.Warn("unknown bidding zone, skipping price fetch",
			slog.String("request_id", req.ID), slog.String("region", req.Region))
	}

	if len(weatherBody) == 0 && len(priceBody) == 0 {
		slog.Error("all upstream fetches failed", slog.String("request_id", req.ID))
		if err := req.Conn.WriteString(fetchFailedNotice); err != nil {
			slog.Warn("error notice write failed", slog.String("request_id", req.ID))
		}
		req.Conn.Release()
		return domain.FetchedBundle{}, false
	}

	return domain.FetchedBundle{
		Request:      req,
		WeatherBytes: weatherBody,
		PriceBytes:   priceBody,
	}, true
}

// fetchBody returns the body for url, consulting the cache first. Any
// failure degrades to an empty body.
func (p *Pipeline) fetchBody(ctx context.Context, requestID, url string) []byte {
	if p.cache != nil {
		if body, ok := p.cache.Get(ctx, url); ok {
			return body
		}
	}
	res, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		slog.Warn("upstream fetch failed",
			slog.String("request_id", requestID),
			slog.String("url", url),
			slog.Any("error", err))
		return nil
	}
	if p.cache != nil {
		p.cache.Set(ctx, url, res.Body, p.opts.CacheTTL)
	}
	return res.Body
}

// parse decodes both bodies. Undecodable or missing bodies produce empty
// series; the bundle is forwarded regardless so the client always gets a
// response.
func (p *Pipeline) parse(_ context.Context, b domain.FetchedBundle) (domain.ParsedBundle, bool) {
	weather := decoder.DecodeWeather(b.WeatherBytes)
	prices := decoder.DecodePrices(b.PriceBytes)
	slog.Debug("bundle parsed",
		slog.String("request_id", b.Request.ID),
		slog.Int("weather_samples", len(weather)),
		slog.Int("price_samples", len(prices)))
	return domain.ParsedBundle{Request: b.Request, Weather: weather, Prices: prices}, true
}

// compute generates the plan, writes the rendered text to the client, and
// releases the connection back to its worker.
func (p *Pipeline) compute(_ context.Context, b domain.ParsedBundle) (struct{}, bool) {
	plan := p.engine.Generate(b.Weather, b.Prices)
	observability.PlansGeneratedTotal.Inc()

	loc := geo.Resolve(b.Request.Location)
	sunrise, sunset := planner.DaylightWindow(plan.GeneratedAt, loc.Lat, loc.Lon)
	slog.Info("plan generated",
		slog.String("request_id", b.Request.ID),
		slog.String("location", b.Request.Location),
		slog.String("region", b.Request.Region),
		slog.Int("entries", len(plan.Intervals)),
		slog.Float64("total_cost_sek", plan.TotalCostSEK),
		slog.Time("sunrise", sunrise),
		slog.Time("sunset", sunset))

	text := planner.FormatPlan(b.Request.Location, b.Request.Region, plan)
	if err := b.Request.Conn.WriteString(text); err != nil {
		slog.Warn("plan write failed", slog.String("request_id", b.Request.ID), slog.Any("error", err))
	}
	b.Request.Conn.Release()
	return struct{}{}, false
}
