package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tunetrace/tunetrace/pkg/tunetrace"
	"github.com/tunetrace/tunetrace/pkg/tunetrace/enrich"
)

var (
	port           int
	tabDBPath      string
	tempDir        string
	recognizerURL  string
	tokenCachePath string
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&tabDBPath, "tabdb", getEnvOrDefault("TAB_DB_PATH", ""), "Path to the sqlite tablature store")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("TUNETRACE_TEMP_DIR", ""), "Staging directory (default: /dev/shm when present)")
	flag.StringVar(&recognizerURL, "recognizer", getEnvOrDefault("RECOGNIZER_URL", "http://127.0.0.1:3737"), "Recognition service base URL")
	flag.StringVar(&tokenCachePath, "token-cache", getEnvOrDefault("TOKEN_CACHE_PATH", ".cache"), "Catalog token cache file")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// requireEnv fails fast at startup rather than mid-pipeline.
func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("Required environment variable %s is not set", key)
	}
	return value
}

func main() {
	flag.Parse()

	clientID := requireEnv("SPOTIFY_CLIENT_ID")
	clientSecret := requireEnv("SPOTIFY_CLIENT_SECRET")
	videoAPIKey := requireEnv("YOUTUBE_API_KEY")
	if tabDBPath == "" {
		log.Fatalf("Tab store path is required (set TAB_DB_PATH or -tabdb)")
	}

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	creds := enrich.Credentials{ClientID: clientID, ClientSecret: clientSecret}

	service, err := tunetrace.NewService(
		tunetrace.WithTempDir(tempDir),
		tunetrace.WithRecognizerURL(recognizerURL),
		tunetrace.WithTokenCachePath(tokenCachePath),
		tunetrace.WithCredentials(creds),
		tunetrace.WithVideoAPIKey(videoAPIKey),
		tunetrace.WithTabDBPath(tabDBPath),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	// Probe the catalog token once so credential problems surface at
	// boot instead of on the first request.
	probeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	tokens := enrich.NewTokenStore(creds, tokenCachePath)
	if _, err := tokens.Token(probeCtx); err != nil {
		log.Printf("Warning: catalog token probe failed: %v", err)
	}
	cancel()

	config := &ServerConfig{
		Port:           port,
		TabDBPath:      tabDBPath,
		RecognizerURL:  recognizerURL,
		AllowedOrigins: origins,
	}

	server := NewServer(service, config)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
