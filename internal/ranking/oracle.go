package ranking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const contentType = "application/json"

// Oracle calls an external ranking service over HTTP/JSON.
type Oracle struct {
	logger     *zap.Logger
	endpoint   string
	apiKey     string
	HTTPClient *http.Client
}

type oracleRequest struct {
	ProfileText string             `json:"profileText"`
	Candidates  []oracleCandidate  `json:"candidates"`
	TopK        int                `json:"topK"`
}

type oracleCandidate struct {
	ID     string   `json:"id"`
	Topics []string `json:"topics"`
}

type oracleResponse struct {
	IDs []string `json:"ids"`
}

func NewOracle(endpoint, apiKey string, logger *zap.Logger) *Oracle {
	return &Oracle{
		logger:   logger,
		endpoint: endpoint,
		apiKey:   apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

var _ Client = (*Oracle)(nil)

// Rank posts the profile and candidate set to the oracle and returns the
// validated ordering. Transport failures, non-2xx statuses, malformed
// bodies and responses with zero usable IDs all map to ErrRanking.
func (o *Oracle) Rank(ctx context.Context, profileText string, candidates []Candidate, topK int) ([]string, error) {
	if topK < 1 {
		return nil, fmt.Errorf("%w: topK must be >= 1", ErrRanking)
	}

	payload := oracleRequest{
		ProfileText: profileText,
		Candidates:  make([]oracleCandidate, 0, len(candidates)),
		TopK:        topK,
	}
	for _, c := range candidates {
		payload.Candidates = append(payload.Candidates, oracleCandidate{ID: c.ID, Topics: c.Topics})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrRanking, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRanking, err)
	}

	req.Header.Set("Content-Type", contentType)
	if o.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", o.apiKey))
	}

	o.logger.Debug("ranking oracle request",
		zap.String("url", o.endpoint),
		zap.Int("candidates", len(candidates)),
		zap.Int("top_k", topK),
	)

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRanking, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: bad status: %s", ErrRanking, resp.Status)
	}

	var decoded oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrRanking, err)
	}

	usable := FilterKnownIDs(decoded.IDs, candidates)
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: oracle returned no usable ids", ErrRanking)
	}

	if len(usable) > topK {
		usable = usable[:topK]
	}

	return usable, nil
}
