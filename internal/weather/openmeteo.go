package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vg84526/airquality-analysis/internal/common"
	"github.com/vg84526/airquality-analysis/internal/geo"
	"github.com/vg84526/airquality-analysis/internal/httpc"
)

// ErrNoData reports that the weather archive had no daily section for the
// requested point and range. Callers get this instead of partial or garbage
// rows.
var ErrNoData = errors.New("no daily weather data")

// dailyMetrics is the fixed metric list requested from the archive.
const dailyMetrics = "temperature_2m_mean,temperature_2m_max,temperature_2m_min," +
	"precipitation_sum,wind_speed_10m_mean,relative_humidity_2m_mean"

// ArchiveClient fetches daily historical weather from the Open-Meteo archive
// API. No API key is required for non-commercial use.
type ArchiveClient struct {
	baseURL string
	httpCfg httpc.Config
	circuit *gobreaker.CircuitBreaker
}

func NewArchiveClient(client *http.Client) *ArchiveClient {
	return &ArchiveClient{
		baseURL: "https://archive-api.open-meteo.com/v1/archive",
		httpCfg: httpc.Config{
			Client:  client,
			Backoff: httpc.DefaultBackoff(),
		},
		circuit: httpc.NewBreaker("openmeteo-archive"),
	}
}

// DailyRange returns one summary per day the archive reports for the
// inclusive [start, end] range, queried at the centroid of the box. Metric
// arrays shorter than the date list leave the affected days' metrics nil
// rather than failing the call.
func (c *ArchiveClient) DailyRange(ctx context.Context, box geo.BoundingBox, start, end time.Time) ([]DailySummary, error) {
	lat, lon := box.Centroid()

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("start_date", start.Format(common.DayFormat))
		values.Set("end_date", end.Format(common.DayFormat))
		values.Set("daily", dailyMetrics)
		values.Set("timezone", "auto")

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := httpc.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("weather archive at %.4f,%.4f: %w", lat, lon, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Daily *struct {
			Time             []string   `json:"time"`
			TemperatureMean  []*float64 `json:"temperature_2m_mean"`
			TemperatureMax   []*float64 `json:"temperature_2m_max"`
			TemperatureMin   []*float64 `json:"temperature_2m_min"`
			PrecipitationSum []*float64 `json:"precipitation_sum"`
			WindSpeedMean    []*float64 `json:"wind_speed_10m_mean"`
			HumidityMean     []*float64 `json:"relative_humidity_2m_mean"`
		} `json:"daily"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("weather archive at %.4f,%.4f: decoding response: %w", lat, lon, err)
	}

	if payload.Daily == nil || len(payload.Daily.Time) == 0 {
		return nil, fmt.Errorf("point %.4f,%.4f between %s and %s: %w",
			lat, lon, start.Format(common.DayFormat), end.Format(common.DayFormat), ErrNoData)
	}

	daily := payload.Daily
	summaries := make([]DailySummary, 0, len(daily.Time))
	for i, date := range daily.Time {
		summaries = append(summaries, DailySummary{
			Date:                 date,
			TemperatureMean2m:    at(daily.TemperatureMean, i),
			TemperatureMax2m:     at(daily.TemperatureMax, i),
			TemperatureMin2m:     at(daily.TemperatureMin, i),
			PrecipitationSum:     at(daily.PrecipitationSum, i),
			WindSpeed10mMean:     at(daily.WindSpeedMean, i),
			RelativeHumidityMean: at(daily.HumidityMean, i),
		})
	}
	return summaries, nil
}

// at indexes a metric array that may be shorter than the date list.
func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}
