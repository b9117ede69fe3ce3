// Package main provides the entry point for the carledger CLI.
//
// carledger crawls a retail catalog of collectible model cars and records
// the observed prices in a wide-format CSV ledger, one column per day.
//
// Usage:
//
//	carledger crawl
//	carledger merge prices.csv
//	carledger migrate prices.csv
//
// See --help for all available options.
package main

// main is the entry point for carledger.
func main() {
	Execute()
}
