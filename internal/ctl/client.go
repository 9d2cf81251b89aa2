package ctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"scadd/pkg/types"
)

// Config carries connection settings shared by all subcommands.
type Config struct {
	Addr   string
	LogLvl string
}

// baseURL normalizes the addr flag into a full http URL.
func (c *Config) baseURL() string {
	a := c.Addr
	if strings.HasPrefix(a, "http://") || strings.HasPrefix(a, "https://") {
		return strings.TrimRight(a, "/")
	}
	if strings.HasPrefix(a, ":") {
		a = "localhost" + a
	}
	return "http://" + strings.TrimRight(a, "/")
}

var httpClient = &http.Client{Timeout: 5 * time.Minute}

// decodeError turns a JSON error payload into a Go error.
func decodeError(resp *http.Response) error {
	var e types.ErrorResponse
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("%s (HTTP %d)", e.Error, resp.StatusCode)
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func getJSON(cfg *Config, path string, out any) error {
	resp, err := httpClient.Get(cfg.baseURL() + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func postJSON(cfg *Config, path string, in any) (*http.Response, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	return httpClient.Post(cfg.baseURL()+path, "application/json", bytes.NewReader(b))
}

// fetchMesh downloads a binary mesh response to path (or stdout if "-").
func fetchMesh(resp *http.Response, outPath string) error {
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		return fmt.Errorf("no preview available yet")
	}
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	var w io.Writer = os.Stdout
	if outPath != "" && outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return err
	}
	if outPath != "" && outPath != "-" {
		info("wrote %d bytes to %s (triangles: %s)", n, outPath, resp.Header.Get("X-Mesh-Triangles"))
	}
	return nil
}

// parseParams turns repeated key=value tokens into a Params map. Values
// parse as JSON literals first (numbers, booleans) and fall back to
// plain strings.
func parseParams(kvs []string) (types.Params, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	out := make(types.Params, len(kvs))
	for _, kv := range kvs {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", kv)
		}
		key, raw := kv[:eq], kv[eq+1:]
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			out[key] = n
			continue
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			out[key] = f
			continue
		}
		if b, err := strconv.ParseBool(raw); err == nil {
			out[key] = b
			continue
		}
		out[key] = raw
	}
	return out, nil
}

// readSourceFile loads inline program text for --source-file.
func readSourceFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
