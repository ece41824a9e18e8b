package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"download-gate/pkg/auth"
)

// Smoke test against a running download gate.
//
//	GATE_BASE_URL     defaults to http://localhost:8080
//	ADMIN_JWT_SECRET  signs the admin token used to create a link
//	SMOKE_OBJECT      storage reference to issue, defaults to files/sample.txt

type CreateLinkResponse struct {
	DownloadLink     string `json:"downloadLink"`
	ExpiresInMinutes int    `json:"expiresInMinutes"`
	MaxDownloads     int    `json:"maxDownloads"`
}

var client = &http.Client{
	Timeout: 10 * time.Second,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func main() {
	baseURL := envOr("GATE_BASE_URL", "http://localhost:8080")
	object := envOr("SMOKE_OBJECT", "files/sample.txt")
	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		fmt.Println("ADMIN_JWT_SECRET is required")
		os.Exit(1)
	}

	fmt.Println("Testing Download Gate API...")

	// Test health endpoint
	fmt.Println("\n1. Testing Health Check...")
	if err := testHealthCheck(baseURL); err != nil {
		fail("Health check failed", err)
	}
	fmt.Println("✓ Health check passed")

	// Test link creation
	fmt.Println("\n2. Testing Link Creation...")
	link, err := testCreateLink(baseURL, secret, object)
	if err != nil {
		fail("Link creation failed", err)
	}
	fmt.Printf("✓ Link created: %s (%d downloads)\n", link.DownloadLink, link.MaxDownloads)

	// Test redemption until the allowance is spent
	fmt.Println("\n3. Testing Redemptions...")
	for i := link.MaxDownloads - 1; i >= 0; i-- {
		if err := testRedeem(link.DownloadLink, i); err != nil {
			fail("Redemption failed", err)
		}
	}
	fmt.Println("✓ Redemptions passed")

	// Test exhaustion
	fmt.Println("\n4. Testing Exhausted Link...")
	if err := expectStatus(link.DownloadLink, http.StatusGone); err != nil {
		fail("Exhaustion check failed", err)
	}
	fmt.Println("✓ Exhausted link rejected")

	// Test unknown and malformed tokens
	fmt.Println("\n5. Testing Unknown And Malformed Tokens...")
	if err := expectStatus(baseURL+"/dl/"+fmt.Sprintf("%064x", 0), http.StatusNotFound); err != nil {
		fail("Unknown token check failed", err)
	}
	if err := expectStatus(baseURL+"/dl/not-a-token", http.StatusBadRequest); err != nil {
		fail("Malformed token check failed", err)
	}
	fmt.Println("✓ Unknown and malformed tokens rejected")

	fmt.Println("\n🎉 All tests passed!")
}

func testHealthCheck(baseURL string) error {
	return expectStatus(baseURL+"/health", http.StatusOK)
}

func testCreateLink(baseURL, secret, object string) (*CreateLinkResponse, error) {
	token, err := auth.NewJWTManager(secret).GenerateToken("smoke-test", auth.RoleAdmin, 5*time.Minute)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(map[string]string{"storageReference": object})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/admin/links", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("expected status 201, got %d: %s", resp.StatusCode, string(body))
	}

	var link CreateLinkResponse
	err = json.Unmarshal(body, &link)
	if err != nil {
		return nil, err
	}

	return &link, nil
}

func testRedeem(downloadLink string, wantRemaining int) error {
	resp, err := client.Get(downloadLink)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("expected status 302, got %d: %s", resp.StatusCode, string(body))
	}

	remaining, err := strconv.Atoi(resp.Header.Get("X-Downloads-Remaining"))
	if err != nil || remaining != wantRemaining {
		return fmt.Errorf("expected %d downloads remaining, got %q", wantRemaining, resp.Header.Get("X-Downloads-Remaining"))
	}

	location, err := url.Parse(resp.Header.Get("Location"))
	if err != nil || location.Host == "" {
		return fmt.Errorf("redirect has no usable location: %q", resp.Header.Get("Location"))
	}

	return expectStatus(location.String(), http.StatusOK)
}

func expectStatus(target string, want int) error {
	resp, err := client.Get(target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("expected status %d, got %d: %s", want, resp.StatusCode, string(body))
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fail(step string, err error) {
	fmt.Printf("%s: %v\n", step, err)
	os.Exit(1)
}
