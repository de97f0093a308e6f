// Command healthcheck probes the service health endpoint and exits
// non-zero when the service is unhealthy. Intended for container
// HEALTHCHECK directives and process supervisors.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bincyber/beesly/pkg/authsdk"
)

func main() {
	url := flag.String("url", "http://localhost:8000", "base URL of the beesly service")
	timeout := flag.Duration("timeout", 3*time.Second, "request timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := authsdk.NewSDKClient(*url)
	if err := client.Health(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "unhealthy: %v\n", err)
		os.Exit(1)
	}
}
