package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// verifySignature reads the request body and checks its HMAC-SHA256
// signature against the shared secret. An empty secret is allowed outside
// production so local setups can skip webhook signing.
func verifySignature(r *http.Request, secretKey, signatureHeader string) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	if secretKey == "" {
		if os.Getenv("WATOPIC_ENV") == "production" {
			return nil, fmt.Errorf("webhook secret is required in production mode")
		}
		return body, nil
	}

	header := r.Header.Get(signatureHeader)
	if header == "" {
		return nil, fmt.Errorf("missing signature header: %s", signatureHeader)
	}

	expected := header
	if parts := strings.SplitN(header, "=", 2); len(parts) == 2 {
		if strings.ToLower(parts[0]) != "sha256" {
			return nil, fmt.Errorf("invalid signature format in header %s", signatureHeader)
		}
		expected = parts[1]
	}

	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(expected)) {
		return nil, fmt.Errorf("signature mismatch")
	}
	return body, nil
}
