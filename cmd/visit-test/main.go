package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultServerURL   = "http://127.0.0.1:3000"
	defaultVisitCount  = 5
	defaultRetryMax    = 3
	defaultHTTPTimeout = 10 * time.Second
)

type statsResponse struct {
	TotalRequests int64  `json:"totalRequests"`
	VisitCount    int64  `json:"visitCount"`
	DBSource      string `json:"dbSource"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// visit-test is a smoke-test client: it loads the landing page a few
// times to generate visits, then verifies the health and stats endpoints
// reflect them.
func main() {
	serverURL := flag.String("server", defaultServerURL, "visitd server URL")
	visits := flag.Int("visits", defaultVisitCount, "Number of page visits to generate")
	flag.Parse()

	client := retryablehttp.NewClient()
	client.RetryMax = defaultRetryMax
	client.HTTPClient.Timeout = defaultHTTPTimeout
	client.Logger = nil

	for i := 0; i < *visits; i++ {
		if _, err := fetch(client, *serverURL+"/"); err != nil {
			fmt.Fprintf(os.Stderr, "visit %d failed: %v\n", i+1, err)
			os.Exit(1)
		}
	}
	fmt.Printf("generated %d visits\n", *visits)

	body, err := fetch(client, *serverURL+"/api/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
		os.Exit(1)
	}
	var healthCheck healthResponse
	if err := json.Unmarshal(body, &healthCheck); err != nil {
		fmt.Fprintf(os.Stderr, "bad health response: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("health: %s %v\n", healthCheck.Status, healthCheck.Checks)

	body, err = fetch(client, *serverURL+"/api/stats")
	if err != nil {
		fmt.Fprintf(os.Stderr, "stats request failed: %v\n", err)
		os.Exit(1)
	}
	var serverStats statsResponse
	if err := json.Unmarshal(body, &serverStats); err != nil {
		fmt.Fprintf(os.Stderr, "bad stats response: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("stats: totalRequests=%d visitCount=%d dbSource=%s\n",
		serverStats.TotalRequests, serverStats.VisitCount, serverStats.DBSource)
}

// fetch returns the response body regardless of status code; health may
// legitimately answer 503 while a backend is down.
func fetch(client *retryablehttp.Client, url string) ([]byte, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	return io.ReadAll(resp.Body)
}
