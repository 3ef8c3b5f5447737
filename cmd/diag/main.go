package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/star/skywatch/internal/orbit"
	"github.com/star/skywatch/internal/tle"
)

func main() {
	id := flag.String("id", "25544", "NORAD catalog id to look up")
	source := flag.String("source", "", "TLE source URL (default: CelesTrak)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	fetcher := tle.NewFetcher(*source, logger)
	fmt.Printf("Fetching TLE for %s from %s\n", *id, fetcher.SourceURL())

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	raw, err := fetcher.Fetch(ctx, []string{*id})
	if err != nil {
		fmt.Println("ERROR fetching TLE:", err)
		os.Exit(1)
	}

	records := tle.Parse(string(raw), orbit.NewSGP4Builder(), logger)
	fmt.Printf("Parsed %d TLE record(s)\n", len(records))

	rec, ok := records[*id]
	if !ok {
		fmt.Printf("ERROR: %s not present in TLE response\n", *id)
		os.Exit(1)
	}

	fmt.Printf("  %s\n  %s\n  %s\n", rec.Name, rec.Line1, rec.Line2)

	now := time.Now().UTC()
	sp, err := rec.Handle.Subpoint(now)
	if err != nil {
		fmt.Println("ERROR propagating:", err)
		os.Exit(1)
	}

	fmt.Printf("Sub-point at %v:\n", now.Format(time.RFC3339))
	fmt.Printf("  lat=%.4f lon=%.4f alt=%.1fkm vel=%.2fkm/s\n",
		sp.Latitude, sp.Longitude, sp.AltitudeKm, sp.VelocityKmS)
}
