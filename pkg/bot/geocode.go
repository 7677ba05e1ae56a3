package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"rescuebot/pkg/logger"
	"rescuebot/pkg/models"
)

var errUnresolvedAddress = errors.New("address could not be resolved")

// Geocoder resolves free-text addresses against a Nominatim-compatible
// endpoint.
type Geocoder struct {
	baseURL string
	client  *http.Client
	log     logger.ILogger
}

func NewGeocoder(baseURL string, log logger.ILogger) *Geocoder {
	return &Geocoder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

func (g *Geocoder) Resolve(ctx context.Context, query string) (models.Point, error) {
	reqURL := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.Point{}, err
	}
	req.Header.Set("User-Agent", "rescuebot")

	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Error("geocoder request failed", logger.String("query", query), logger.Error(err))
		return models.Point{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Point{}, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return models.Point{}, err
	}
	if len(results) == 0 {
		return models.Point{}, errUnresolvedAddress
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Point{}, errUnresolvedAddress
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Point{}, errUnresolvedAddress
	}

	p := models.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return models.Point{}, errUnresolvedAddress
	}
	return p, nil
}
