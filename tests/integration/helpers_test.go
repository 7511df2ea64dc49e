package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

// baseURL returns the storefront base URL. Override with STOREFRONT_URL when
// the service runs somewhere other than localhost:8080.
func baseURL() string {
	if v := os.Getenv("STOREFRONT_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://localhost:8080"
}

// uniqueSlugPart generates a unique suffix to avoid collisions between runs.
func uniqueSlugPart(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), rand.Intn(100000))
}

// uniqueSKU generates a unique SKU.
func uniqueSKU(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", strings.ToUpper(prefix), time.Now().UnixNano()%1000000, rand.Intn(10000))
}

// uniqueOwner generates a fresh owner identity per test so carts and orders
// never collide.
func uniqueOwner() string {
	return fmt.Sprintf("it-user-%d-%d", time.Now().UnixNano(), rand.Intn(100000))
}

// skipIfNotRunning skips the test when the storefront is unreachable.
func skipIfNotRunning(t *testing.T) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL() + "/health/live")
	if err != nil {
		t.Skipf("storefront not reachable at %s (Docker not running?): %v", baseURL(), err)
	}
	resp.Body.Close()
}

// httpGet performs a GET and returns the status code and decoded JSON body.
func httpGet(t *testing.T, path string, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	return doRequest(t, http.MethodGet, path, nil, headers)
}

// httpPost performs a POST with a JSON body.
func httpPost(t *testing.T, path string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	return doRequest(t, http.MethodPost, path, body, headers)
}

// httpPut performs a PUT with a JSON body.
func httpPut(t *testing.T, path string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	return doRequest(t, http.MethodPut, path, body, headers)
}

// httpDelete performs a DELETE.
func httpDelete(t *testing.T, path string, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	return doRequest(t, http.MethodDelete, path, nil, headers)
}

func ownerHeaders(owner string) map[string]string {
	return map[string]string{"X-User-ID": owner}
}

func doRequest(t *testing.T, method, path string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request body failed: %v", err)
		}
		bodyReader = bytes.NewReader(jsonBytes)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest(method, baseURL()+path, bodyReader)
	if err != nil {
		t.Fatalf("creating %s request for %s failed: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

// decodeBody reads the response body and attempts to decode it as JSON.
// If the body is empty or not JSON, it returns an empty map.
func decodeBody(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("reading response body failed: %v", err)
	}
	if len(raw) == 0 {
		return map[string]interface{}{}
	}
	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return map[string]interface{}{"raw": string(raw)}
	}
	return result
}

// requireStatus asserts that the HTTP status code matches the expected value.
func requireStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("expected status %d, got %d", want, got)
	}
}

// extractField extracts a value from a nested map using a dot-separated path.
// For example, extractField(data, "data.order_number") navigates
// data["data"]["order_number"].
func extractField(data map[string]interface{}, path string) interface{} {
	parts := strings.Split(path, ".")
	var current interface{} = data
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

// extractString is a convenience wrapper around extractField that returns a string.
func extractString(t *testing.T, data map[string]interface{}, path string) string {
	t.Helper()
	val := extractField(data, path)
	if val == nil {
		t.Fatalf("expected string at path %q, got nil", path)
	}
	s, ok := val.(string)
	if !ok {
		t.Fatalf("expected string at path %q, got %T: %v", path, val, val)
	}
	return s
}

// extractFloat is a convenience wrapper that returns a float64.
func extractFloat(t *testing.T, data map[string]interface{}, path string) float64 {
	t.Helper()
	val := extractField(data, path)
	if val == nil {
		t.Fatalf("expected number at path %q, got nil", path)
	}
	f, ok := val.(float64)
	if !ok {
		t.Fatalf("expected float64 at path %q, got %T: %v", path, val, val)
	}
	return f
}

// createProduct provisions a product through the admin API and returns its ID.
func createProduct(t *testing.T, name string, price int64, inventory int) string {
	t.Helper()
	body := map[string]interface{}{
		"name":         name,
		"sku":          uniqueSKU("IT"),
		"price":        price,
		"inventory":    inventory,
		"is_available": true,
	}
	status, data := httpPost(t, "/api/v1/admin/products", body, nil)
	requireStatus(t, status, 201)
	return extractString(t, data, "data.id")
}
