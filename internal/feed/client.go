// Package feed implements the client for the upstream schedule service.
package feed

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EliasBlind/UniBot/internal/models"
	"github.com/EliasBlind/UniBot/pkg/config"
	appErrors "github.com/EliasBlind/UniBot/pkg/errors"
)

// Client fetches one week of class occurrences from the upstream feed.
// It performs no retries; staleness and retry policy live with the caller.
type Client struct {
	baseURL string
	groupID int
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient constructs a feed client from configuration.
func NewClient(cfg config.FeedConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		groupID: cfg.GroupID,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type feedItem struct {
	Date        int64 `json:"date"`
	Sort        int   `json:"sort"`
	ClassroomID int   `json:"classroomId"`
	Subgroup    *int  `json:"subgroup"`
	Start       int   `json:"start"`
	End         int   `json:"end"`
	Teacher     struct {
		Full      string `json:"full"`
		BirthDate *int64 `json:"birthDate"`
	} `json:"teacher"`
	Classroom struct {
		Title string `json:"title"`
	} `json:"classroom"`
	Plan struct {
		Subject struct {
			Title string  `json:"title"`
			Short *string `json:"short"`
		} `json:"subject"`
	} `json:"plan"`
}

type feedResponse struct {
	Items []feedItem `json:"items"`
}

// Fetch requests the occurrences overlapping the Monday..Sunday week that
// contains at and returns them sorted by (date, plan ordinal). Transport
// errors, non-2xx statuses and malformed payloads all surface as a single
// source-unavailable condition.
func (c *Client) Fetch(ctx context.Context, at time.Time) ([]models.Lesson, error) {
	start := WeekStart(at)
	end := start.AddDate(0, 0, 6)

	url := fmt.Sprintf("%s/schedule?start=%d&end=%d&groupId=%d", c.baseURL, start.Unix(), end.Unix(), c.groupID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, c.unavailable(err, "build feed request")
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Encoding", "gzip")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, c.unavailable(err, "request schedule feed")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, c.unavailable(fmt.Errorf("unexpected status %d", res.StatusCode), "request schedule feed")
	}

	body := io.Reader(res.Body)
	if strings.Contains(res.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(res.Body)
		if err != nil {
			return nil, c.unavailable(err, "decompress feed body")
		}
		defer gz.Close()
		body = gz
	}

	var payload feedResponse
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, c.unavailable(err, "decode feed body")
	}

	lessons := make([]models.Lesson, 0, len(payload.Items))
	for _, item := range payload.Items {
		lessons = append(lessons, models.Lesson{
			Date:            time.Unix(item.Date, 0).Format("2006-01-02"),
			Plan:            item.Sort,
			ClassroomID:     item.ClassroomID,
			Classroom:       item.Classroom.Title,
			Combined:        item.Subgroup != nil,
			Start:           item.Start,
			End:             item.End,
			TeacherName:     item.Teacher.Full,
			TeacherBirthday: item.Teacher.BirthDate,
			Subject:         item.Plan.Subject.Title,
			SubjectShort:    item.Plan.Subject.Short,
		})
	}

	// Stable keeps the server order for equal (date, plan) pairs.
	sort.SliceStable(lessons, func(i, j int) bool {
		if lessons[i].Date != lessons[j].Date {
			return lessons[i].Date < lessons[j].Date
		}
		return lessons[i].Plan < lessons[j].Plan
	})

	c.logger.Info("feed fetched",
		zap.Int64("week_start", start.Unix()),
		zap.Int64("week_end", end.Unix()),
		zap.Int("items", len(lessons)),
	)

	return lessons, nil
}

func (c *Client) unavailable(err error, msg string) error {
	c.logger.Warn("schedule feed unavailable", zap.String("op", msg), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, msg)
}

// WeekStart returns Monday 00:00 of t's calendar week in t's location.
func WeekStart(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}
