// Command blobctl is a command-line client for a blobgate proxy.
//
//	blobctl config set https://files.example.com TOKEN
//	blobctl ls notes/
//	blobctl put ./report.pdf docs/report.pdf
//	blobctl mv docs/report.pdf docs/2024-report.pdf
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
