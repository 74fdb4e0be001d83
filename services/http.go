package services

import (
	"net/http"
	"sync"
	"time"
)

var DefaultHttpClient = sync.OnceValue(func() *http.Client {
	timeout := time.Duration(DefaultConfig().Scraper.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
})
