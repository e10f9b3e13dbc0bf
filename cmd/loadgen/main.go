// loadgen drives the public API with realistic traffic: it registers
// throwaway users, logs them in, creates orders and reads them back.
// Useful for smoke-testing the whole pipeline end to end.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"orderservice/internal/pkg/pool"
)

type tokenPair struct {
	AccessToken string `json:"access_token"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8081", "API base URL")
		users   = flag.Int("users", 10, "number of concurrent users")
		orders  = flag.Int("orders", 20, "orders per user")
	)
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	var created, failed atomic.Int64
	start := time.Now()

	p := pool.New(*users)
	for i := 0; i < *users; i++ {
		p.Submit(func() {
			if err := runUser(client, *baseURL, *orders, &created); err != nil {
				failed.Add(1)
				log.Printf("user run failed: %v", err)
			}
		})
	}
	p.Close()
	p.Wait()

	log.Printf("done: %d orders created, %d users failed, took %v",
		created.Load(), failed.Load(), time.Since(start).Round(time.Millisecond))
}

func runUser(client *http.Client, baseURL string, orders int, created *atomic.Int64) error {
	email := gofakeit.Email()
	password := gofakeit.Password(true, true, true, false, false, 12)

	if _, err := post(client, baseURL+"/register", map[string]string{
		"email": email, "password": password,
	}, "", http.StatusCreated); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	body, err := post(client, baseURL+"/auth/token", map[string]string{
		"email": email, "password": password,
	}, "", http.StatusOK)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	var pair tokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		return fmt.Errorf("decode token: %w", err)
	}

	for i := 0; i < orders; i++ {
		payload := map[string]any{
			"items": map[string]any{
				"sku": gofakeit.Word(),
				"qty": gofakeit.Number(1, 10),
			},
		}
		body, err := post(client, baseURL+"/orders", payload, pair.AccessToken, http.StatusCreated)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		var o orderResponse
		if err := json.Unmarshal(body, &o); err != nil {
			return fmt.Errorf("decode order: %w", err)
		}
		created.Add(1)

		if err := get(client, baseURL+"/orders/"+o.ID, pair.AccessToken); err != nil {
			return fmt.Errorf("read back order %s: %w", o.ID, err)
		}
	}
	return nil
}

func post(client *http.Client, url string, payload any, token string, wantStatus int) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	if resp.StatusCode != wantStatus {
		return nil, fmt.Errorf("%s: status %d: %s", url, resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}

func get(client *http.Client, url, token string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	return nil
}
