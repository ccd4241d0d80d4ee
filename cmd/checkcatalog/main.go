// Manual probe for Piped-compatible catalog instances: runs a search and
// fetches one stream manifest against each configured instance.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/lmerle/replay/internal/catalog"
	"github.com/lmerle/replay/internal/config"
)

const probeQuery = "mitski nobody"

func main() {
	instance := flag.String("instance", "", "probe this instance instead of the configured ones")
	flag.Parse()

	var bases []string
	if *instance != "" {
		bases = []string{*instance}
	} else {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		bases = append(bases, cfg.CatalogURL())
		if cfg.Catalog.Fallback != "" {
			bases = append(bases, cfg.Catalog.Fallback)
		}
	}

	for _, base := range bases {
		probe(base)
	}
}

func probe(base string) {
	log.Printf("Probing %s", base)
	client := catalog.New(base)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	items, err := client.Search(ctx, probeQuery, catalog.FilterSongs)
	if err != nil {
		log.Printf("  search FAILED: %v", err)
		return
	}
	log.Printf("  search: %d items in %v", len(items), time.Since(start).Round(time.Millisecond))

	var videoID string
	for _, item := range items {
		if id := catalog.VideoID(item.URL); id != "" {
			videoID = id
			log.Printf("  first hit: %s by %s", item.Title, item.UploaderName)
			break
		}
	}
	if videoID == "" {
		log.Println("  no stream items in search results")
		return
	}

	start = time.Now()
	streams, err := client.Streams(ctx, videoID)
	if err != nil {
		log.Printf("  streams FAILED: %v", err)
		return
	}
	log.Printf("  streams: %d audio formats in %v", len(streams.AudioStreams), time.Since(start).Round(time.Millisecond))

	best := catalog.BestAudio(streams.AudioStreams)
	if best == nil {
		log.Println("  no usable audio stream")
		return
	}
	log.Printf("  best audio: %s at %d bps", best.MimeType, best.Bitrate)
	log.Println("  OK")
}
