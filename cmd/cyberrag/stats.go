package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// runStats fetches /api/stats from a running service and pretty-prints it.
func runStats(baseURL string, out io.Writer) error {
	client := resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second)

	resp, err := client.R().Get("/api/stats")
	if err != nil {
		return fmt.Errorf("stats request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("stats status %d: %s", resp.StatusCode(), resp.String())
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, resp.Body(), "", "  "); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, pretty.String())
	return err
}
