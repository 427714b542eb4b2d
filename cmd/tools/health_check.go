package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	url := flag.String("url", "http://localhost:8080/health", "health endpoint")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Parse()

	fmt.Println("irecStatApp Health Check Utility")
	fmt.Println("--------------------------------")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := checkServiceHealth(ctx, http.DefaultClient, *url); err != nil {
		fmt.Printf("Service is NOT healthy: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Service is healthy!")
}

func checkServiceHealth(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("status %q", body.Status)
	}
	return nil
}
