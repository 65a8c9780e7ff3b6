package weather

// DailySummary is one day of aggregate weather metrics at a query point,
// as reported by the weather archive. A nil metric means the archive did not
// report a value for that day; nil is never substituted with zero.
type DailySummary struct {
	Date                 string   `json:"date"` // YYYY-MM-DD
	TemperatureMean2m    *float64 `json:"temperature_mean_2m"`
	TemperatureMax2m     *float64 `json:"temperature_max_2m"`
	TemperatureMin2m     *float64 `json:"temperature_min_2m"`
	PrecipitationSum     *float64 `json:"precipitation_sum"`
	WindSpeed10mMean     *float64 `json:"wind_speed_10m_mean"`
	RelativeHumidityMean *float64 `json:"relative_humidity_2m_mean"`
}
