package fetcher

import (
	"fmt"
	"time"
)

const (
	weatherBaseURL   = "https://api.open-meteo.com/v1/forecast"
	spotPriceBaseURL = "https://www.elprisetjustnu.se/api/v1/prices"
)

// BuildWeatherURL returns the open-meteo hourly forecast URL for one day
// at the given coordinates.
func BuildWeatherURL(lat, lon float64, timezone string) string {
	return fmt.Sprintf(
		"%s?latitude=%.2f&longitude=%.2f"+
			"&hourly=temperature_2m,relative_humidity_2m,cloud_cover,wind_speed_10m,shortwave_radiation"+
			"&timezone=%s&forecast_days=1",
		weatherBaseURL, lat, lon, timezone)
}

// BuildSpotPriceURL returns the elprisetjustnu.se URL for the region on the
// given date, e.g. .../2024/01-15_SE3.json.
func BuildSpotPriceURL(region string, date time.Time) string {
	return fmt.Sprintf("%s/%04d/%02d-%02d_%s.json",
		spotPriceBaseURL, date.Year(), int(date.Month()), date.Day(), region)
}

// BuildSpotPriceTomorrowURL returns the price URL for the day after date.
// Day-ahead prices publish around 13:00 CET.
func BuildSpotPriceTomorrowURL(region string, date time.Time) string {
	return BuildSpotPriceURL(region, date.AddDate(0, 0, 1))
}
