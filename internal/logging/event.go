package logging

import "time"

// ScrapeEvent logs one structured line per scrape batch tick.
func ScrapeEvent(fetched, updated, deactivated int, elapsed time.Duration) {
	Info().
		Int("fetched", fetched).
		Int("updated", updated).
		Int("deactivated", deactivated).
		Dur("elapsed", elapsed).
		Msg("scrape batch completed")
}
