package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// newHealthCmd creates the `jobweave health` command, used by
// container HEALTHCHECK directives and uptime monitors. It pings a
// running worker's health endpoint rather than checking in-process
// state, since it runs as a separate invocation of the binary.
func newHealthCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running worker's health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get("http://" + address + "/health")
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			var body map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decoding health response: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("worker unhealthy: status %d", resp.StatusCode)
			}
			data, _ := json.Marshal(body)
			fmt.Println(string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "localhost:8080", "worker health endpoint address")
	return cmd
}
