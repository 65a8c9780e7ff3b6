package airquality

import (
	"context"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sony/gobreaker"

	"github.com/vg84526/airquality-analysis/internal/common"
	"github.com/vg84526/airquality-analysis/internal/httpc"
)

// ErrNoObject reports that the archive has no published object for a
// site/day. Absence is expected for sparse sites and is not a failure.
var ErrNoObject = errors.New("no archive object for site/day")

// ArchiveClient reads the day-partitioned public archive bucket. Objects are
// keyed records/csv.gz/locationid={id}/year={yyyy}/month={mm}/...{yyyymmdd}.csv.gz
// and readable anonymously over plain HTTPS, so no signing is involved:
// listing uses the bucket's list-type=2 REST interface, objects are fetched
// with a straight GET.
type ArchiveClient struct {
	baseURL string
	httpCfg httpc.Config
	circuit *gobreaker.CircuitBreaker
}

func NewArchiveClient(client *http.Client) *ArchiveClient {
	return &ArchiveClient{
		baseURL: "https://openaq-data-archive.s3.amazonaws.com",
		httpCfg: httpc.Config{
			Client:  client,
			Backoff: httpc.DefaultBackoff(),
		},
		circuit: httpc.NewBreaker("openaq-archive"),
	}
}

// DayReadings downloads and decodes the archive object for one site and one
// calendar day. It returns ErrNoObject when the day has nothing published.
func (c *ArchiveClient) DayReadings(ctx context.Context, siteID int, day time.Time) ([]RawReading, error) {
	key, err := c.findDayObject(ctx, siteID, day)
	if err != nil {
		return nil, err
	}

	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.baseURL+"/"+key, nil)
	}

	resp, err := httpc.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", key, err)
	}
	defer resp.Body.Close()

	readings, err := decodeReadings(resp.Body, siteID)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return readings, nil
}

// findDayObject lists the site's month partition and picks the object whose
// key ends in the day's yyyymmdd stamp.
func (c *ArchiveClient) findDayObject(ctx context.Context, siteID int, day time.Time) (string, error) {
	prefix := fmt.Sprintf("records/csv.gz/locationid=%d/year=%s/month=%s/",
		siteID, day.Format("2006"), day.Format("01"))

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s/?list-type=2&prefix=%s", c.baseURL, url.QueryEscape(prefix))
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := httpc.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return "", fmt.Errorf("listing %s: %w", prefix, err)
	}
	defer resp.Body.Close()

	var listing struct {
		XMLName  xml.Name `xml:"ListBucketResult"`
		Contents []struct {
			Key string `xml:"Key"`
		} `xml:"Contents"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return "", fmt.Errorf("listing %s: decoding response: %w", prefix, err)
	}

	suffix := day.Format("20060102") + ".csv.gz"
	for _, obj := range listing.Contents {
		if strings.HasSuffix(obj.Key, suffix) {
			return obj.Key, nil
		}
	}
	return "", fmt.Errorf("site %d day %s: %w", siteID, day.Format(common.DayFormat), ErrNoObject)
}

// decodeReadings gunzips and parses one archive object. Rows that fail to
// parse are skipped; the archive occasionally carries ragged or malformed
// lines and one bad row must not discard the day.
func decodeReadings(r io.Reader, siteID int) ([]RawReading, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	cr := csv.NewReader(gz)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"datetime", "parameter", "value", "units"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv header missing %q column", required)
		}
	}

	var readings []RawReading
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}

		reading, ok := parseReading(record, col, siteID)
		if !ok {
			continue
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

func parseReading(record []string, col map[string]int, siteID int) (RawReading, bool) {
	field := func(name string) (string, bool) {
		i := col[name]
		if i >= len(record) {
			return "", false
		}
		return record[i], true
	}

	rawTS, ok1 := field("datetime")
	param, ok2 := field("parameter")
	rawVal, ok3 := field("value")
	unit, ok4 := field("units")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return RawReading{}, false
	}

	ts, err := time.Parse(time.RFC3339, rawTS)
	if err != nil {
		return RawReading{}, false
	}
	val, err := strconv.ParseFloat(rawVal, 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return RawReading{}, false
	}

	return RawReading{
		SiteID:    siteID,
		Timestamp: ts,
		Parameter: param,
		Value:     val,
		Unit:      unit,
	}, true
}
