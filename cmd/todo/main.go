package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"priority-todo-backend/internal/client"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func printError(w io.Writer, err error) {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Error: %s\n", apiErr.Message)
	details, ok := apiErr.Details.([]any)
	if !ok {
		return
	}
	for _, d := range details {
		field, _ := d.(map[string]any)
		if field == nil {
			continue
		}
		fmt.Fprintf(w, "  %v: %v\n", field["field"], field["message"])
	}
}
