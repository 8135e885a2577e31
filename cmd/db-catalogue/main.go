// Package main implements the db-catalogue CLI.
package main

import (
	"context"
	"io"
	"os"

	"github.com/electwix/db-catalogue/internal/cli"
)

func main() {
	code := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return cli.Execute(ctx, args, stdout, stderr)
}
