// Package decoder turns raw upstream bodies into validated sample series.
//
// Decoding is tolerant by contract: malformed or empty input yields an
// empty series and a nil error, and individual samples that violate the
// domain ranges are dropped with a WARN log. The pipeline always proceeds.
package decoder

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gridguard/leop-server/internal/domain"
)

// weatherTimeLayout is the open-meteo hourly timestamp format.
const weatherTimeLayout = "2006-01-02T15:04"

var validate = validator.New()

// openMeteoBody mirrors the open-meteo forecast response: parallel hourly
// arrays indexed by position.
type openMeteoBody struct {
	Hourly struct {
		Time             []string  `json:"time"`
		Temperature2M    []float64 `json:"temperature_2m"`
		RelativeHumidity []float64 `json:"relative_humidity_2m"`
		CloudCover       []float64 `json:"cloud_cover"`
		WindSpeed10M     []float64 `json:"wind_speed_10m"`
		ShortwaveRad     []float64 `json:"shortwave_radiation"`
	} `json:"hourly"`
}

// DecodeWeather decodes an open-meteo forecast body into weather samples.
func DecodeWeather(body []byte) []domain.WeatherSample {
	if len(body) == 0 {
		return nil
	}
	var resp openMeteoBody
	if err := json.Unmarshal(body, &resp); err != nil {
		slog.Warn("weather body is not valid JSON", slog.Any("error", err))
		return nil
	}

	h := resp.Hourly
	samples := make([]domain.WeatherSample, 0, len(h.Time))
	for i := range h.Time {
		s := domain.WeatherSample{
			IrradianceWM2: at(h.ShortwaveRad, i),
			CloudCoverPct: at(h.CloudCover, i),
			TemperatureC:  at(h.Temperature2M, i),
			WindSpeedMS:   at(h.WindSpeed10M, i),
			HumidityPct:   at(h.RelativeHumidity, i),
		}
		// Alignment is positional, so an unparsable timestamp zeroes the
		// field but keeps the sample.
		if ts, err := time.Parse(weatherTimeLayout, h.Time[i]); err == nil {
			s.Timestamp = ts
		}
		if err := validate.Struct(s); err != nil {
			slog.Warn("dropping out-of-range weather sample",
				slog.Int("index", i), slog.Any("error", err))
			continue
		}
		samples = append(samples, s)
	}
	return samples
}

// at tolerates parallel arrays shorter than hourly.time.
func at(vals []float64, i int) float64 {
	if i < len(vals) {
		return vals[i]
	}
	return 0
}
