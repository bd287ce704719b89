package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
)

// errNotScored means the report is not stored yet.
var errNotScored = errors.New("report not available yet")

// httpClient wraps http.Client with the service base URL.
type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

func (c *httpClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

func (c *httpClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readBody reads and closes the response body.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// checkHealth verifies the service answers /healthz.
func (c *httpClient) checkHealth(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	_, _ = readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// submit posts calls with a fixed number of workers. Results keep the order of calls.
func (c *httpClient) submit(ctx context.Context, workers int, calls []model.Call, log logger.Logger) []Result {
	results := make([]Result, len(calls))
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = c.submitOne(ctx, calls[i])
				if results[i].Err != nil {
					log.Warn(ctx, "call submission failed",
						logger.CallID(calls[i].CallID), logger.Error(results[i].Err))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range calls {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	for i := range results {
		if results[i].Outcome == "" {
			results[i] = Result{CallID: calls[i].CallID, Outcome: OutcomeFailed, Err: ctx.Err()}
		}
	}
	return results
}

func (c *httpClient) submitOne(ctx context.Context, call model.Call) Result { //nolint:gocritic // hugeParam: Call is read-only here
	res := Result{CallID: call.CallID, Outcome: OutcomeFailed}
	resp, err := c.post(ctx, "/calls", callRequest{
		CallID:     call.CallID,
		CallType:   call.CallType,
		Agent:      call.Agent,
		Transcript: call.Transcript,
		Chunks:     call.Chunks,
	})
	if err != nil {
		res.Err = err
		return res
	}
	body, err := readBody(resp)
	if err != nil {
		res.Err = err
		return res
	}

	var ack ackResponse
	_ = json.Unmarshal(body, &ack)
	if ack.CallID != "" {
		res.CallID = ack.CallID
	}
	switch resp.StatusCode {
	case http.StatusAccepted:
		res.Outcome = OutcomeAccepted
	case http.StatusOK:
		res.Outcome = OutcomeDuplicate
	default:
		res.Err = fmt.Errorf("submit %s: status %d: %s", call.CallID, resp.StatusCode, bytes.TrimSpace(body))
	}
	return res
}

// report fetches one stored record. errNotScored means 404.
func (c *httpClient) report(ctx context.Context, callID string) (*model.Record, error) {
	resp, err := c.get(ctx, "/reports/"+callID)
	if err != nil {
		return nil, err
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		var rec model.Record
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", callID, err)
		}
		return &rec, nil
	case http.StatusNotFound:
		return nil, errNotScored
	}
	return nil, fmt.Errorf("report %s: status %d", callID, resp.StatusCode)
}

func (c *httpClient) review(ctx context.Context, limit int) ([]types.ReviewEntry, error) {
	resp, err := c.get(ctx, "/review?limit="+strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("review: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	var entries []types.ReviewEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode review: %w", err)
	}
	return entries, nil
}
