package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SupabaseStore uploads objects to a Supabase Storage bucket over its REST API.
type SupabaseStore struct {
	BaseURL   string
	SecretKey string // service_role key; the anon key is rejected by storage
	Bucket    string
	Client    *http.Client
}

func (s *SupabaseStore) client() *http.Client {
	if s.Client == nil {
		s.Client = &http.Client{Timeout: 15 * time.Second}
	}
	return s.Client
}

func (s *SupabaseStore) objectURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", strings.TrimRight(s.BaseURL, "/"), s.Bucket, key)
}

// PublicURL is the unauthenticated URL of key in a public bucket.
func (s *SupabaseStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", strings.TrimRight(s.BaseURL, "/"), s.Bucket, key)
}

func (s *SupabaseStore) do(ctx context.Context, method, url string, body io.Reader, contentType string) error {
	if s.BaseURL == "" || s.SecretKey == "" || s.Bucket == "" {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	// supabase-js sends the key both as apikey and as bearer token
	req.Header.Set("apikey", s.SecretKey)
	req.Header.Set("Authorization", "Bearer "+s.SecretKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("x-upsert", "false")
	}
	resp, err := s.client().Do(req)
	if err != nil {
		return fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (s *SupabaseStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := s.do(ctx, http.MethodPost, s.objectURL(key), bytes.NewReader(data), contentType); err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}

func (s *SupabaseStore) Delete(ctx context.Context, key string) error {
	return s.do(ctx, http.MethodDelete, s.objectURL(key), nil, "")
}
