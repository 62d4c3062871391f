package decoder

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gridguard/leop-server/internal/domain"
)

// elprisetEntry mirrors one element of the elprisetjustnu.se price array.
type elprisetEntry struct {
	SEKPerKWh float64 `json:"SEK_per_kWh"`
	EURPerKWh float64 `json:"EUR_per_kWh"`
	EXR       float64 `json:"EXR"`
	TimeStart string  `json:"time_start"`
	TimeEnd   string  `json:"time_end"`
}

// DecodePrices decodes an elprisetjustnu.se body into price samples.
func DecodePrices(body []byte) []domain.PriceSample {
	if len(body) == 0 {
		return nil
	}
	var entries []elprisetEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		slog.Warn("price body is not valid JSON", slog.Any("error", err))
		return nil
	}

	samples := make([]domain.PriceSample, 0, len(entries))
	for i, e := range entries {
		s := domain.PriceSample{
			PriceSEKKWh:  e.SEKPerKWh,
			PriceEURKWh:  e.EURPerKWh,
			ExchangeRate: e.EXR,
		}
		if ts, err := time.Parse(time.RFC3339, e.TimeStart); err == nil {
			s.IntervalStart = ts
		}
		if ts, err := time.Parse(time.RFC3339, e.TimeEnd); err == nil {
			s.IntervalEnd = ts
		}
		if err := validate.Struct(s); err != nil {
			slog.Warn("dropping out-of-range price sample",
				slog.Int("index", i), slog.Any("error", err))
			continue
		}
		samples = append(samples, s)
	}
	return samples
}
