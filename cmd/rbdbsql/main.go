// Command rbdbsql is a smoke-test driver: it opens an RBDB database
// file, runs a SQL script against it as a single Exec call, and logs
// each row the script's final statement returns. It is not the
// interactive terminal spec.md places
// out of scope — there is no REPL, no readline, no Datalog surface
// syntax — only enough wiring to exercise Open/Exec end to end the way
// the teacher's cmd/server exercised its own Manager before the HTTP
// layer existed.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/chkn/rbdb"
	"github.com/chkn/rbdb/internal/rlog"
)

func main() {
	dbPath := flag.String("db", "", "path to the RBDB database file")
	scriptPath := flag.String("script", "", "path to a .sql script to run")
	dev := flag.Bool("dev", false, "use human-readable console logging instead of JSON")
	flag.Parse()

	var logger *rlog.Logger
	var err error
	if *dev {
		logger, err = rlog.NewDevelopment()
	} else {
		logger, err = rlog.New()
	}
	if err != nil {
		os.Stderr.WriteString("rbdbsql: logger init: " + err.Error() + "\n")
		os.Exit(1)
	}

	if *dbPath == "" || *scriptPath == "" {
		logger.Sugar().Fatal("rbdbsql: both -db and -script are required")
	}

	script, err := os.ReadFile(*scriptPath)
	if err != nil {
		logger.Sugar().Fatalf("rbdbsql: read script: %v", err)
	}

	ctx := context.Background()
	logger.Sugar().Infow("opening database", "path", *dbPath)
	db, err := rbdb.Open(ctx, *dbPath, rbdb.DefaultOptions())
	if err != nil {
		logger.Sugar().Fatalf("rbdbsql: open: %v", err)
	}
	defer db.Close()

	logger.Sugar().Infow("running script", "path", *scriptPath, "bytes", len(script))
	cur, err := db.Exec(ctx, string(script))
	if err != nil {
		logger.Sugar().Fatalf("rbdbsql: exec: %v", err)
	}
	if cur == nil {
		logger.Sugar().Info("script completed (no result rows)")
		return
	}
	defer cur.Close()

	rows := 0
	for {
		row, ok, err := cur.Next(ctx)
		if err != nil {
			logger.Sugar().Fatalf("rbdbsql: next: %v", err)
		}
		if !ok {
			break
		}
		fields := make(map[string]string, len(row))
		for col, v := range row {
			fields[col] = v.String()
		}
		logger.Sugar().Infow("row", "values", fields)
		rows++
	}
	logger.Sugar().Infow("script finished", "rows", rows)
}
