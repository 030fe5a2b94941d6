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

// fitbitProvider reads the Fitbit Web API
type fitbitProvider struct {
	baseURL     string
	httpClient  *http.Client
	accessToken string
}

func newFitbitProvider(baseURL string, client *http.Client) FitnessProvider {
	return &fitbitProvider{baseURL: baseURL, httpClient: client}
}

func (p *fitbitProvider) Name() string { return "fitbit" }

func (p *fitbitProvider) SetCredentials(accessToken string) {
	p.accessToken = accessToken
}

type fitbitProfile struct {
	User struct {
		EncodedID string  `json:"encodedId"`
		FirstName string  `json:"firstName"`
		LastName  string  `json:"lastName"`
		City      string  `json:"city"`
		Country   string  `json:"country"`
		Weight    float64 `json:"weight"`
	} `json:"user"`
}

type fitbitActivityLog struct {
	LogID            int64   `json:"logId"`
	ActivityName     string  `json:"activityName"`
	StartTime        string  `json:"startTime"`
	Duration         int64   `json:"duration"`
	Distance         float64 `json:"distance"`
	ElevationGain    float64 `json:"elevationGain"`
	AverageHeartRate float64 `json:"averageHeartRate"`
	Calories         float64 `json:"calories"`
}

type fitbitActivityList struct {
	Activities []fitbitActivityLog `json:"activities"`
}

type fitbitLifetime struct {
	Lifetime struct {
		Total struct {
			Distance float64 `json:"distance"`
			Steps    int64   `json:"steps"`
			Floors   float64 `json:"floors"`
		} `json:"total"`
	} `json:"lifetime"`
}

func (p *fitbitProvider) GetAthlete(ctx context.Context) (*domain.Athlete, error) {
	var raw fitbitProfile
	if err := p.get(ctx, "/1/user/-/profile.json", nil, &raw); err != nil {
		return nil, err
	}

	return &domain.Athlete{
		ID:        raw.User.EncodedID,
		FirstName: raw.User.FirstName,
		LastName:  raw.User.LastName,
		City:      raw.User.City,
		Country:   raw.User.Country,
		Weight:    raw.User.Weight,
		Provider:  p.Name(),
	}, nil
}

func (p *fitbitProvider) GetActivities(ctx context.Context, page, perPage int) ([]*domain.Activity, error) {
	params := url.Values{}
	params.Set("beforeDate", time.Now().Format("2006-01-02"))
	params.Set("sort", "desc")
	params.Set("offset", strconv.Itoa((page-1)*perPage))
	params.Set("limit", strconv.Itoa(perPage))

	var raw fitbitActivityList
	if err := p.get(ctx, "/1/user/-/activities/list.json", params, &raw); err != nil {
		return nil, err
	}

	activities := make([]*domain.Activity, 0, len(raw.Activities))
	for _, a := range raw.Activities {
		activities = append(activities, a.toDomain())
	}
	return activities, nil
}

// GetActivity is not available: the Fitbit activity-log API only serves
// list pages, not single log lookups by id.
func (p *fitbitProvider) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	return nil, apperr.New(apperr.InvalidInput, "provider fitbit does not support activity lookups")
}

func (p *fitbitProvider) GetStats(ctx context.Context) (*domain.Stats, error) {
	var raw fitbitLifetime
	if err := p.get(ctx, "/1/user/-/activities.json", nil, &raw); err != nil {
		return nil, err
	}

	// Lifetime distance is reported in kilometres
	return &domain.Stats{
		TotalDistance: raw.Lifetime.Total.Distance * 1000,
		Provider:      p.Name(),
	}, nil
}

func (a fitbitActivityLog) toDomain() *domain.Activity {
	start, _ := time.Parse(time.RFC3339, a.StartTime)
	return &domain.Activity{
		ID:             strconv.FormatInt(a.LogID, 10),
		Name:           a.ActivityName,
		SportType:      a.ActivityName,
		StartDate:      start,
		DurationSec:    a.Duration / 1000,
		DistanceMeters: a.Distance * 1000,
		ElevationGain:  a.ElevationGain,
		AvgHeartRate:   a.AverageHeartRate,
		Calories:       a.Calories,
		Provider:       "fitbit",
	}
}

func (p *fitbitProvider) get(ctx context.Context, path string, params url.Values, dest any) error {
	endpoint := p.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build fitbit request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "fitbit request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperr.New(apperr.AuthInvalid, "fitbit rejected the access token")
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperr.New(apperr.RateLimited, "fitbit rate limit exceeded")
	case resp.StatusCode == http.StatusNotFound:
		return apperr.New(apperr.NotFound, "fitbit resource not found")
	case resp.StatusCode != http.StatusOK:
		return apperr.Newf(apperr.Internal, "fitbit returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperr.Wrap(apperr.InvalidFormat, "failed to decode fitbit response", err)
	}
	return nil
}
