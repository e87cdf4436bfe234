// Package main provides dmsctl, a command line client for the trash and
// history operations of the DMS object service.
package main

import (
	"errors"
	"fmt"
	"os"

	"dms-object-service/internal/client"
)

const (
	exitSysError  = 1
	exitUserError = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.UserError() {
		return exitUserError
	}
	return exitSysError
}
