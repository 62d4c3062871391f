package decoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weatherBody = `{
  "latitude": 59.33,
  "longitude": 18.07,
  "hourly": {
    "time": ["2024-01-15T00:00", "2024-01-15T01:00", "2024-01-15T02:00"],
    "temperature_2m": [-3.1, -3.4, -2.9],
    "relative_humidity_2m": [88, 90, 91],
    "cloud_cover": [100, 75, 20],
    "wind_speed_10m": [4.2, 3.9, 4.0],
    "shortwave_radiation": [0, 0, 12.5]
  }
}`

const priceBody = `[
  {"SEK_per_kWh": 0.4523, "EUR_per_kWh": 0.0401, "EXR": 11.28,
   "time_start": "2024-01-15T00:00:00+01:00", "time_end": "2024-01-15T01:00:00+01:00"},
  {"SEK_per_kWh": 1.8711, "EUR_per_kWh": 0.1659, "EXR": 11.28,
   "time_start": "2024-01-15T01:00:00+01:00", "time_end": "2024-01-15T02:00:00+01:00"}
]`

func TestDecodeWeather(t *testing.T) {
	samples := DecodeWeather([]byte(weatherBody))
	require.Len(t, samples, 3)

	assert.InDelta(t, -3.1, samples[0].TemperatureC, 1e-9)
	assert.InDelta(t, 88, samples[0].HumidityPct, 1e-9)
	assert.InDelta(t, 100, samples[0].CloudCoverPct, 1e-9)
	assert.InDelta(t, 12.5, samples[2].IrradianceWM2, 1e-9)

	want := time.Date(2024, 1, 15, 1, 0, 0, 0, time.UTC)
	assert.True(t, samples[1].Timestamp.Equal(want))
}

func TestDecodeWeather_DropsOutOfRangeSamples(t *testing.T) {
	body := `{"hourly": {
	  "time": ["2024-01-15T00:00", "2024-01-15T01:00"],
	  "temperature_2m": [10, 99],
	  "relative_humidity_2m": [50, 50],
	  "cloud_cover": [10, 10],
	  "wind_speed_10m": [1, 1],
	  "shortwave_radiation": [100, 100]
	}}`
	samples := DecodeWeather([]byte(body))
	require.Len(t, samples, 1)
	assert.InDelta(t, 10, samples[0].TemperatureC, 1e-9)
}

func TestDecodeWeather_ToleratesShortParallelArrays(t *testing.T) {
	body := `{"hourly": {
	  "time": ["2024-01-15T00:00", "2024-01-15T01:00"],
	  "temperature_2m": [10],
	  "shortwave_radiation": [100]
	}}`
	samples := DecodeWeather([]byte(body))
	require.Len(t, samples, 2)
	assert.InDelta(t, 0, samples[1].IrradianceWM2, 1e-9)
}

func TestDecodeWeather_MalformedOrEmpty(t *testing.T) {
	assert.Empty(t, DecodeWeather(nil))
	assert.Empty(t, DecodeWeather([]byte("")))
	assert.Empty(t, DecodeWeather([]byte("not json")))
	assert.Empty(t, DecodeWeather([]byte(`{"hourly": {}}`)))
}

func TestDecodePrices(t *testing.T) {
	samples := DecodePrices([]byte(priceBody))
	require.Len(t, samples, 2)

	assert.InDelta(t, 0.4523, samples[0].PriceSEKKWh, 1e-9)
	assert.InDelta(t, 0.0401, samples[0].PriceEURKWh, 1e-9)
	assert.InDelta(t, 11.28, samples[0].ExchangeRate, 1e-9)
	assert.InDelta(t, 1.8711, samples[1].PriceSEKKWh, 1e-9)

	loc := time.FixedZone("CET", 3600)
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, loc)
	assert.True(t, samples[0].IntervalStart.Equal(want))
	assert.True(t, samples[0].IntervalEnd.Equal(want.Add(time.Hour)))
}

func TestDecodePrices_DropsOutOfRangeSamples(t *testing.T) {
	body := `[
	  {"SEK_per_kWh": 0.5, "time_start": "2024-01-15T00:00:00+01:00", "time_end": "2024-01-15T01:00:00+01:00"},
	  {"SEK_per_kWh": 99.0, "time_start": "2024-01-15T01:00:00+01:00", "time_end": "2024-01-15T02:00:00+01:00"}
	]`
	samples := DecodePrices([]byte(body))
	require.Len(t, samples, 1)
	assert.InDelta(t, 0.5, samples[0].PriceSEKKWh, 1e-9)
}

func TestDecodePrices_MalformedOrEmpty(t *testing.T) {
	assert.Empty(t, DecodePrices(nil))
	assert.Empty(t, DecodePrices([]byte("{}")))
	assert.Empty(t, DecodePrices([]byte("nope")))
	assert.Empty(t, DecodePrices([]byte("[]")))
}
