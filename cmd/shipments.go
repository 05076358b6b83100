package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var shipmentsCmd = &cobra.Command{
	Use:   "shipments",
	Short: "Shipment related commands",
}

var shipmentsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List shipments, following every page",
	RunE:  runShipmentsLs,
}

var lsFlags struct {
	addr     string
	status   string
	pickup   string
	dropoff  string
	service  string
	adr      string
	earliest string
	pageSize int
}

func init() {
	f := shipmentsLsCmd.Flags()
	f.StringVar(&lsFlags.addr, "addr", "http://localhost:3000", "service address")
	f.StringVar(&lsFlags.status, "status", "", "OPEN, BOOKED, DELIVERED or CANCELLED")
	f.StringVar(&lsFlags.pickup, "pickup", "", "pickup contains")
	f.StringVar(&lsFlags.dropoff, "dropoff", "", "dropoff contains")
	f.StringVar(&lsFlags.service, "service", "", "service type")
	f.StringVar(&lsFlags.adr, "adr", "", "true or false")
	f.StringVar(&lsFlags.earliest, "earliest", "", "earliest ready date (YYYY-MM-DD)")
	f.IntVar(&lsFlags.pageSize, "page-size", 50, "shipments per request")
	shipmentsCmd.AddCommand(shipmentsLsCmd)
	rootCmd.AddCommand(shipmentsCmd)
}

type shipmentRow struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Service   string `json:"service"`
	Pickup    string `json:"pickup"`
	Dropoff   string `json:"dropoff"`
	ReadyDate string `json:"readyDate"`
}

func shipmentQuery(cursor string) string {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("status", lsFlags.status)
	set("pickupContains", lsFlags.pickup)
	set("dropoffContains", lsFlags.dropoff)
	set("service", lsFlags.service)
	set("adr", lsFlags.adr)
	set("earliestDate", lsFlags.earliest)
	set("cursor", cursor)
	q.Set("limit", fmt.Sprint(lsFlags.pageSize))
	return "/api/shipments?" + q.Encode()
}

func runShipmentsLs(cmd *cobra.Command, args []string) error {
	client := newAPIClient(lsFlags.addr)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSERVICE\tREADY\tROUTE")
	cursor := ""
	for {
		env, err := client.do(cmd.Context(), "GET", shipmentQuery(cursor))
		if err != nil {
			return err
		}
		var rows []shipmentRow
		if err := json.Unmarshal(env.Data, &rows); err != nil {
			return fmt.Errorf("decode shipments: %w", err)
		}
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s → %s\n", r.ID, r.Status, r.Service, r.ReadyDate, r.Pickup, r.Dropoff)
		}
		if env.NextCursor == nil || *env.NextCursor == "" {
			break
		}
		cursor = *env.NextCursor
	}
	return w.Flush()
}
