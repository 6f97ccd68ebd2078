package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// apiClient talks to a running kernel over its REST surface.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No timeout: /ask streams for as long as the model talks.
		http: &http.Client{},
	}
}

// apiError is a non-2xx answer from the kernel.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("kernel returned %d: %s", e.Status, strings.TrimSpace(e.Body))
}

func (c *apiClient) do(method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req)
}

func (c *apiClient) send(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &apiError{Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// askHeaders carries the routing metadata sent ahead of the answer body.
type askHeaders struct {
	Status  string
	Route   string
	Persona string
}

// ask posts a question and copies the streamed answer to out as it arrives.
func (c *apiClient) ask(question, persona string, out io.Writer) (askHeaders, error) {
	payload, err := json.Marshal(map[string]string{"question": question, "persona": persona})
	if err != nil {
		return askHeaders{}, err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/ask", bytes.NewReader(payload))
	if err != nil {
		return askHeaders{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return askHeaders{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return askHeaders{}, &apiError{Status: resp.StatusCode, Body: string(data)}
	}

	headers := askHeaders{
		Status:  resp.Header.Get("X-Agent-Status"),
		Route:   resp.Header.Get("X-Agent-Route"),
		Persona: resp.Header.Get("X-Agent-Persona"),
	}
	_, err = io.Copy(out, resp.Body)
	return headers, err
}

// upload sends path as the multipart "file" field.
func (c *apiClient) upload(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return c.send(req)
}

// waitHealthy polls /health until it answers or timeout elapses.
func (c *apiClient) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, err := c.do(http.MethodGet, "/health", nil)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("kernel not reachable at %s: %w", c.baseURL, err)
		}
		time.Sleep(250 * time.Millisecond)
	}
}
