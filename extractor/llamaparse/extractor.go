package llamaparse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/w-h-a/docchat/extractor"
)

const defaultLocation = "https://api.cloud.llamaindex.ai"

// llamaParseExtractor uploads file bytes to the LlamaParse cloud
// service, which runs layout-aware parsing and returns markdown.
// Higher fidelity for tables and figures than local extraction, at the
// cost of latency and provider rate limits. The configured cooldown is
// observed after every parse so consecutive calls do not get
// throttled.
type llamaParseExtractor struct {
	options extractor.Options
	client  *http.Client
}

func (e *llamaParseExtractor) Extract(ctx context.Context, file extractor.UploadedFile) ([]extractor.Document, error) {
	if len(e.options.ApiKey) == 0 {
		return nil, errors.New("llama cloud api key is required")
	}

	jobId, err := e.upload(ctx, file)
	if err != nil {
		return nil, err
	}

	if err := e.await(ctx, jobId); err != nil {
		return nil, err
	}

	markdown, err := e.result(ctx, jobId)
	if err != nil {
		return nil, err
	}

	if err := e.cooldown(ctx); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(markdown)
	if len(text) == 0 {
		return nil, fmt.Errorf("parse %s produced no content", file.Name)
	}

	doc := extractor.Document{
		Text:       text,
		SourceFile: file.Name,
		Metadata: map[string]string{
			"extractor": "llamaparse",
			"job_id":    jobId,
		},
	}

	return []extractor.Document{doc}, nil
}

func (e *llamaParseExtractor) upload(ctx context.Context, file extractor.UploadedFile) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("parsing_instruction", e.options.Instruction); err != nil {
		return "", err
	}

	if err := writer.WriteField("result_type", "markdown"); err != nil {
		return "", err
	}

	partWriter, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(partWriter, bytes.NewReader(file.Bytes)); err != nil {
		return "", err
	}

	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/api/parsing/upload", e.options.Location),
		body,
	)
	if err != nil {
		return "", err
	}

	req.Header.Add("Content-Type", writer.FormDataContentType())
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", e.options.ApiKey))

	rsp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode >= 400 {
		return "", fmt.Errorf("status: %s", rsp.Status)
	}

	var res struct {
		Id string `json:"id"`
	}

	if err := json.NewDecoder(rsp.Body).Decode(&res); err != nil {
		return "", err
	}

	if len(res.Id) == 0 {
		return "", errors.New("no job id from LlamaParse")
	}

	return res.Id, nil
}

func (e *llamaParseExtractor) await(ctx context.Context, jobId string) error {
	for {
		status, err := e.status(ctx, jobId)
		if err != nil {
			return err
		}

		switch strings.ToUpper(status) {
		case "SUCCESS", "COMPLETED":
			return nil
		case "ERROR", "CANCELLED":
			return fmt.Errorf("parse job %s failed with status %s", jobId, status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.options.PollInterval):
		}
	}
}

func (e *llamaParseExtractor) status(ctx context.Context, jobId string) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/api/parsing/job/%s", e.options.Location, url.PathEscape(jobId)),
		nil,
	)
	if err != nil {
		return "", err
	}

	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", e.options.ApiKey))

	rsp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode >= 400 {
		return "", fmt.Errorf("status: %s", rsp.Status)
	}

	var res struct {
		Status string `json:"status"`
	}

	if err := json.NewDecoder(rsp.Body).Decode(&res); err != nil {
		return "", err
	}

	return res.Status, nil
}

func (e *llamaParseExtractor) result(ctx context.Context, jobId string) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/api/parsing/job/%s/result/markdown", e.options.Location, url.PathEscape(jobId)),
		nil,
	)
	if err != nil {
		return "", err
	}

	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", e.options.ApiKey))

	rsp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode >= 400 {
		return "", fmt.Errorf("status: %s", rsp.Status)
	}

	var res struct {
		Markdown string `json:"markdown"`
	}

	if err := json.NewDecoder(rsp.Body).Decode(&res); err != nil {
		return "", err
	}

	return res.Markdown, nil
}

func (e *llamaParseExtractor) cooldown(ctx context.Context) error {
	if e.options.Cooldown <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.options.Cooldown):
		return nil
	}
}

func NewExtractor(opts ...extractor.Option) extractor.Extractor {
	options := extractor.NewOptions(opts...)

	if len(options.Location) == 0 {
		options.Location = defaultLocation
	}

	e := &llamaParseExtractor{
		options: options,
		client:  &http.Client{},
	}

	return e
}
