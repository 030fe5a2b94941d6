package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
)

// stravaProvider reads the Strava v3 API
type stravaProvider struct {
	baseURL     string
	httpClient  *http.Client
	accessToken string
}

func newStravaProvider(baseURL string, client *http.Client) FitnessProvider {
	return &stravaProvider{baseURL: baseURL, httpClient: client}
}

func (p *stravaProvider) Name() string { return "strava" }

func (p *stravaProvider) SetCredentials(accessToken string) {
	p.accessToken = accessToken
}

type stravaAthlete struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Firstname string  `json:"firstname"`
	Lastname  string  `json:"lastname"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Weight    float64 `json:"weight"`
}

type stravaActivity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	MovingTime         int64     `json:"moving_time"`
	Distance           float64   `json:"distance"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	AverageHeartrate   float64   `json:"average_heartrate"`
	MaxHeartrate       float64   `json:"max_heartrate"`
	Calories           float64   `json:"calories"`
}

type stravaTotals struct {
	Count         int64   `json:"count"`
	Distance      float64 `json:"distance"`
	MovingTime    int64   `json:"moving_time"`
	ElevationGain float64 `json:"elevation_gain"`
}

type stravaStats struct {
	AllRideTotals stravaTotals `json:"all_ride_totals"`
	AllRunTotals  stravaTotals `json:"all_run_totals"`
	AllSwimTotals stravaTotals `json:"all_swim_totals"`
}

func (p *stravaProvider) GetAthlete(ctx context.Context) (*domain.Athlete, error) {
	var raw stravaAthlete
	if err := p.get(ctx, "/athlete", nil, &raw); err != nil {
		return nil, err
	}

	return &domain.Athlete{
		ID:        strconv.FormatInt(raw.ID, 10),
		Username:  raw.Username,
		FirstName: raw.Firstname,
		LastName:  raw.Lastname,
		City:      raw.City,
		Country:   raw.Country,
		Weight:    raw.Weight,
		Provider:  p.Name(),
	}, nil
}

func (p *stravaProvider) GetActivities(ctx context.Context, page, perPage int) ([]*domain.Activity, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var raw []stravaActivity
	if err := p.get(ctx, "/athlete/activities", params, &raw); err != nil {
		return nil, err
	}

	activities := make([]*domain.Activity, 0, len(raw))
	for _, a := range raw {
		activities = append(activities, a.toDomain())
	}
	return activities, nil
}

func (p *stravaProvider) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	var raw stravaActivity
	if err := p.get(ctx, "/activities/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	return raw.toDomain(), nil
}

func (p *stravaProvider) GetStats(ctx context.Context) (*domain.Stats, error) {
	athlete, err := p.GetAthlete(ctx)
	if err != nil {
		return nil, err
	}

	var raw stravaStats
	if err := p.get(ctx, "/athletes/"+athlete.ID+"/stats", nil, &raw); err != nil {
		return nil, err
	}

	totals := []stravaTotals{raw.AllRideTotals, raw.AllRunTotals, raw.AllSwimTotals}
	stats := &domain.Stats{Provider: p.Name()}
	for _, t := range totals {
		stats.TotalActivities += t.Count
		stats.TotalDistance += t.Distance
		stats.TotalDuration += t.MovingTime
		stats.TotalElevation += t.ElevationGain
	}
	return stats, nil
}

func (a stravaActivity) toDomain() *domain.Activity {
	return &domain.Activity{
		ID:             strconv.FormatInt(a.ID, 10),
		Name:           a.Name,
		SportType:      a.SportType,
		StartDate:      a.StartDate,
		DurationSec:    a.MovingTime,
		DistanceMeters: a.Distance,
		ElevationGain:  a.TotalElevationGain,
		AvgHeartRate:   a.AverageHeartrate,
		MaxHeartRate:   a.MaxHeartrate,
		Calories:       a.Calories,
		Provider:       "strava",
	}
}

func (p *stravaProvider) get(ctx context.Context, path string, params url.Values, dest any) error {
	endpoint := p.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build strava request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "strava request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperr.New(apperr.AuthInvalid, "strava rejected the access token")
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperr.New(apperr.RateLimited, "strava rate limit exceeded")
	case resp.StatusCode == http.StatusNotFound:
		return apperr.New(apperr.NotFound, "strava resource not found")
	case resp.StatusCode != http.StatusOK:
		return apperr.Newf(apperr.Internal, "strava returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperr.Wrap(apperr.InvalidFormat, "failed to decode strava response", err)
	}
	return nil
}
