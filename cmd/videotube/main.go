package main

import (
	"context"
	"fmt"
	"os"

	"github.com/videotube/backend/internal/app"
)

func main() {
	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "videotube: %v\n", err)
		os.Exit(1)
	}
}
