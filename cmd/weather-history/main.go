// weather-history fetches weather forecasts and keeps a local, time-bounded
// log of every forecast it has fetched.
//
// Usage:
//
//	# Prune expired history, fetch a forecast and record it
//	weather-history fetch Paris
//
//	# Same, detecting the city from the public IP
//	weather-history fetch
//
//	# Show what has been recorded
//	weather-history list --city Paris
//
//	# Serve the history over HTTP and prune on a schedule
//	weather-history serve
package main

func main() {
	Execute()
}
