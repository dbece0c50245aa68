package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"mpc-plus/internal/auth"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "service base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Parse()
	if flag.NArg() == 0 {
		log.Fatal("usage: ingest_trigger [-base-url url] <run folder>...")
	}
	secret := os.Getenv("INGEST_HMAC_SECRET")
	if secret == "" {
		log.Fatal("INGEST_HMAC_SECRET is required")
	}

	client := &http.Client{Timeout: *timeout}
	failed := 0
	for _, path := range flag.Args() {
		status, body, err := trigger(client, *baseURL, []byte(secret), path)
		if err != nil {
			log.Printf("%s: %v", path, err)
			failed++
			continue
		}
		if status != http.StatusCreated {
			log.Printf("%s: status=%d %s", path, status, bytes.TrimSpace(body))
			failed++
			continue
		}
		fmt.Printf("%s\n", bytes.TrimSpace(body))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func trigger(client *http.Client, baseURL string, secret []byte, path string) (int, []byte, error) {
	body, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return 0, nil, err
	}
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	req, err := http.NewRequest(http.MethodPost, baseURL+"/ingest/folders", bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.HeaderIngestTimestamp, timestamp)
	req.Header.Set(auth.HeaderIngestSignature, auth.SignIngest(secret, timestamp, body))

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}
