package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"textbridge/internal/logger"
)

// Client talks to the batch translation service. Only the submit and
// describe calls are consumed; the translation itself runs outside this
// system and completion arrives as an external event.
type Client struct {
	base  string
	httpc *http.Client
	log   *logger.Logger
}

func New(base string) *Client {
	return &Client{base: base, httpc: &http.Client{Timeout: 30 * time.Second}, log: logger.New("Translate")}
}

// SubmitRequest describes one batch job over an exported input prefix.
type SubmitRequest struct {
	JobName      string `json:"jobName"`
	InputBucket  string `json:"inputBucket"`
	InputPrefix  string `json:"inputPrefix"`
	OutputBucket string `json:"outputBucket"`
	SourceLang   string `json:"sourceLanguageCode"`
	TargetLang   string `json:"targetLanguageCode"`
}

type submitResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// Job is the service's description of a batch job, including where its
// output manifest was written.
type Job struct {
	JobID        string `json:"jobId"`
	JobName      string `json:"jobName"`
	Status       string `json:"status"`
	OutputBucket string `json:"outputBucket"`
	ManifestKey  string `json:"manifestKey"`
}

// Manifest is the job's own output manifest: language codes, counters and
// the (input, output) file pairs. It is the source of truth for identity
// across the asynchronous boundary.
type Manifest struct {
	SourceLanguageCode             string     `json:"sourceLanguageCode"`
	TargetLanguageCode             string     `json:"targetLanguageCode"`
	CharactersTranslated           int        `json:"charactersTranslated"`
	DocumentCountWithCustomerError int        `json:"documentCountWithCustomerError"`
	DocumentCountWithServerError   int        `json:"documentCountWithServerError"`
	Details                        []FilePair `json:"details"`
}

type FilePair struct {
	SourceFile string `json:"sourceFile"`
	TargetFile string `json:"targetFile"`
}

// SubmitBatch submits one job and returns the service-assigned job id.
func (c *Client) SubmitBatch(ctx context.Context, req SubmitRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/jobs", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("submit job %s: %w", req.JobName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("submit job %s: status %d", req.JobName, resp.StatusCode)
	}
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("submit job %s: decode response: %w", req.JobName, err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("submit job %s: empty job id in response", req.JobName)
	}
	c.log.LogInfof("submitted batch job %s (%s -> %s) id=%s", req.JobName, req.SourceLang, req.TargetLang, out.JobID)
	return out.JobID, nil
}

// DescribeJob resolves a job's output manifest location from its id.
func (c *Client) DescribeJob(ctx context.Context, jobID string) (Job, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/jobs/"+jobID, nil)
	if err != nil {
		return Job{}, err
	}
	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return Job{}, fmt.Errorf("describe job %s: %w", jobID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Job{}, fmt.Errorf("describe job %s: status %d", jobID, resp.StatusCode)
	}
	var j Job
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return Job{}, fmt.Errorf("describe job %s: decode response: %w", jobID, err)
	}
	return j, nil
}
