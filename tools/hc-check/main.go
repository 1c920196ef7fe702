package main

import (
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/thisyearnofear/detective-sub003/internal/logging"
	"github.com/thisyearnofear/detective-sub003/internal/shutdown"
)

type Config struct {
	Url string `envconfig:"DETECTIVE_HC_URL" default:"http://localhost:8080/health"`
}

type OkResponse struct {
	Ok bool `json:"ok"`
}

func main() {
	flag.Parse()
	ctx, cancel := shutdown.New()
	logger := logging.FromContext(ctx)
	defer cancel()

	config := Config{}
	if err := envconfig.Process("", &config); err != nil {
		logger.Fatalf("processing the config: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.Url, nil)
	if err != nil {
		logger.Fatalf("build request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Fatalf("client get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		bytes, err := io.ReadAll(resp.Body)
		if err != nil {
			logger.Fatalf("read all body bytes: %v", err)
		}
		var ok OkResponse
		if err := json.Unmarshal(bytes, &ok); err != nil {
			logger.Fatalf("body unmarshal: %v", err)
		}
		if !ok.Ok {
			logger.Errorf("service reported not ok")
			os.Exit(1)
		}
		logger.Infof("service is healthy")
		return
	}

	logger.Errorf("health check status: %d", resp.StatusCode)
	os.Exit(1)
}
