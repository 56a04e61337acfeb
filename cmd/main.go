// internship-crawler
//
// Crawls the careers pages of a curated list of Singapore companies, keeps the
// postings that are internships and stores each one once per (company, title).
//
//	crawler run [--test] [--dry-run]   one run, record printed as JSON
//	crawler serve                      cron schedule + POST /scrape trigger
//	crawler expire                     mark listings past their lifetime expired
//	crawler migrate                    create tables and constraints
//	crawler version
package main

import (
	"os"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
