package static

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"timed-quiz-service/internal/domain"
)

// Source reads the question pool from a JSON file or an HTTP(S) URL. Each
// LoadQuestions call performs exactly one read; there is no retry.
type Source struct {
	location string
	client   *http.Client
}

// NewSource returns a source for location, which is a file path or an
// http:// or https:// URL.
func NewSource(location string, client *http.Client) *Source {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Source{location: location, client: client}
}

func (s *Source) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	var (
		data []byte
		err  error
	)
	if isURL(s.location) {
		data, err = s.fetch(ctx)
	} else {
		data, err = os.ReadFile(s.location)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.location, err)
	}
	return Decode(data)
}

func (s *Source) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Decode parses a JSON array of {genre, question, answer, explanation}.
func Decode(data []byte) ([]domain.Question, error) {
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return questions, nil
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
