// Package planner implements the deterministic energy-dispatch engine and
// the textual plan rendering sent to clients.
package planner

import (
	"time"

	"github.com/gridguard/leop-server/internal/domain"
)

// performanceRatio is the empirical derate of solar output (cabling,
// inverter, soiling).
const performanceRatio = 0.75

// Engine generates dispatch plans. Construction fixes the installation
// parameters; per-run state (battery SoC) lives on the stack of Generate,
// so one Engine is safe for concurrent use.
type Engine struct {
	solar       domain.SolarConfig
	battery     domain.BatteryConfig
	consumption domain.ConsumptionProfile
	threshold   float64
}

// New returns an Engine for the given installation. threshold is the spot
// price (SEK/kWh) above which selling or discharging is preferred.
func New(solar domain.SolarConfig, battery domain.BatteryConfig, consumption domain.ConsumptionProfile, threshold float64) *Engine {
	return &Engine{solar: solar, battery: battery, consumption: consumption, threshold: threshold}
}

// tempDerate models ~0.5% output loss per degree above 25C, clamped to
// [0.5, 1.2]. The clamp bounds are a hard contract.
func tempDerate(tempC float64) float64 {
	c := 1.0 - 0.005*(tempC-25.0)
	if c < 0.5 {
		c = 0.5
	}
	if c > 1.2 {
		c = 1.2
	}
	return c
}

// Production returns the PV yield (kWh) for one interval of the sample.
func (e *Engine) Production(w domain.WeatherSample) float64 {
	// P = A * r * H * PR, temperature-corrected
	return e.solar.PanelAreaM2 * e.solar.PanelEfficiency * (w.IrradianceWM2 / 1000.0) * performanceRatio * tempDerate(w.TemperatureC)
}

// Generate produces a plan over min(len(weather), len(prices)) intervals.
// Output is deterministic for identical inputs. The engine never fails:
// empty input yields an empty plan.
//
// MaxChargeKW/MaxDischargeKW are applied as per-interval kWh caps, keeping
// the historical convention (15-minute intervals would mean dividing by
// four); see DESIGN.md.
func (e *Engine) Generate(weather []domain.WeatherSample, prices []domain.PriceSample) domain.Plan {
	n := len(weather)
	if len(prices) < n {
		n = len(prices)
	}

	soc := e.battery.CurrentSoCPct
	capacity := e.battery.CapacityKWh

	plan := domain.Plan{
		Intervals:   make([]domain.PlanInterval, 0, n),
		GeneratedAt: time.Now(),
	}

	for i := 0; i < n; i++ {
		w := weather[i]
		price := prices[i].PriceSEKKWh

		iv := domain.PlanInterval{
			Timestamp:       w.Timestamp,
			ProductionKWh:   e.Production(w),
			ConsumptionKWh:  e.consumption.BaseLoadKW,
			SpotPriceSEKKWh: price,
		}

		surplus := iv.ProductionKWh - iv.ConsumptionKWh

		if surplus > 0 {
			switch {
			case price > e.threshold:
				iv.Action = domain.ActionSellToGrid
				iv.GridFlowKWh = -surplus
			case capacity > 0 && soc < e.battery.MaxSoCPct:
				charge := surplus
				if charge > e.battery.MaxChargeKW {
					charge = e.battery.MaxChargeKW
				}
				// never charge past MaxSoCPct
				if headroom := (e.battery.MaxSoCPct - soc) / 100.0 * capacity; charge > headroom {
					charge = headroom
				}
				iv.Action = domain.ActionChargeBattery
				iv.BatteryFlowKWh = charge
				iv.GridFlowKWh = -(surplus - charge)
				soc += charge / capacity * 100.0
			default:
				iv.Action = domain.ActionDirectUse
			}
		} else {
			deficit := -surplus
			if price > e.threshold && capacity > 0 && soc > e.battery.MinSoCPct {
				discharge := deficit
				if discharge > e.battery.MaxDischargeKW {
					discharge = e.battery.MaxDischargeKW
				}
				// never discharge below MinSoCPct
				if avail := (soc - e.battery.MinSoCPct) / 100.0 * capacity; discharge > avail {
					discharge = avail
				}
				iv.Action = domain.ActionDischargeBattery
				iv.BatteryFlowKWh = -discharge
				iv.GridFlowKWh = deficit - discharge
				soc -= discharge / capacity * 100.0
			} else {
				iv.Action = domain.ActionBuyFromGrid
				iv.GridFlowKWh = deficit
			}
		}

		iv.EstimatedCostSEK = iv.GridFlowKWh * price
		iv.BatterySoCPct = soc

		plan.TotalCostSEK += iv.EstimatedCostSEK
		if iv.GridFlowKWh > 0 {
			plan.TotalImportKWh += iv.GridFlowKWh
		} else {
			plan.TotalExportKWh += -iv.GridFlowKWh
		}

		plan.Intervals = append(plan.Intervals, iv)
	}

	return plan
}
