// Package main is the entry point for the scrimmetrics CLI tool, which cleans
// scrim tracking sheets and computes team win-rate analytics.
package main

import "github.com/pable/go-scrim-metrics/cmd"

func main() {
	cmd.Execute()
}
