package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/autopeer-io/fleetlink/internal/console/core/model"
	"github.com/autopeer-io/fleetlink/internal/console/core/service"
	consolehttp "github.com/autopeer-io/fleetlink/internal/console/server/http"
)

type statusOptions struct {
	server  string
	session string
	timeout time.Duration
}

func newStatusCommand() *cobra.Command {
	o := &statusOptions{
		server:  "http://127.0.0.1:8480",
		session: service.DefaultSessionID,
		timeout: 10 * time.Second,
	}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the vehicles known to a running console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()

			vehicles, err := fetchVehicles(ctx, o.server, o.session)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderVehicles(vehicles))
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&o.server, "server", o.server, "Base URL of the console HTTP API.")
	fs.StringVar(&o.session, "session", o.session, "Operator session to inspect.")
	fs.DurationVar(&o.timeout, "timeout", o.timeout, "Request timeout.")

	return cmd
}

func fetchVehicles(ctx context.Context, server, session string) ([]consolehttp.VehicleView, error) {
	endpoint, err := url.JoinPath(server, "api/v1/sessions", session, "vehicles")
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", server, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach console: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("console returned %s: %s", resp.Status, body)
	}

	var out []consolehttp.VehicleView
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode vehicles: %w", err)
	}
	return out, nil
}

func renderVehicles(vehicles []consolehttp.VehicleView) string {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("", "ID", "STATUS", "LAT", "LNG", "TEMP", "WIND U", "WIND V", "CHAOS", "LAST SEEN")

	for _, v := range vehicles {
		mark := ""
		if v.Selected {
			mark = "*"
		}
		lat, lng := "-", "-"
		if v.Position != nil {
			lat = strconv.FormatFloat(v.Position.Lat, 'f', 6, 64)
			lng = strconv.FormatFloat(v.Position.Lng, 'f', 6, 64)
		}
		table.AddRow(mark, v.ID, orDash(v.Status), lat, lng,
			formatReading(v.Temperature), formatReading(v.WindU), formatReading(v.WindV),
			formatReading(v.Chaos), lastSeen(v.Vehicle))
	}

	return table.String() + "\n"
}

func formatReading(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func lastSeen(v model.Vehicle) string {
	if v.Stamp.IsZero() {
		return "-"
	}
	return v.Stamp.UTC().Format(time.RFC3339)
}
