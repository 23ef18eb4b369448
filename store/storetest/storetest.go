// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package storetest opens databases for tests of store.DB users.
package storetest

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"flag"
	"fmt"
	"strings"
	"testing"

	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/mysql"

	"github.com/seqan/raptor/store"
	_ "github.com/seqan/raptor/store/sqlite3"
)

var cloud = flag.Bool("cloud", false, "connect to Cloud SQL database instead of in-memory SQLite")
var cloudsql = flag.String("cloudsql", "seqan-bench:europe-west3:raptor-eval", "name of Cloud SQL instance to run tests on")

// cloudDBName returns a database name for test t, unique to the run.
// MySQL limits names to 64 characters.
func cloudDBName(t *testing.T) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		t.Fatal(err)
	}
	test := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToLower(t.Name()))
	suffix := "_" + hex.EncodeToString(buf)
	if max := 64 - len("raptoreval_") - len(suffix); len(test) > max {
		test = test[:max]
	}
	return "raptoreval_" + test + suffix
}

// cloudDB creates an empty Cloud SQL database for t, which is dropped
// when the test finishes, and returns its data source name.
func cloudDB(t *testing.T) string {
	server := fmt.Sprintf("root:@cloudsql(%s)/", *cloudsql)
	db, err := sql.Open("mysql", server)
	if err != nil {
		t.Fatal(err)
	}
	name := cloudDBName(t)
	if _, err := db.Exec("CREATE DATABASE `" + name + "`"); err != nil {
		db.Close()
		t.Fatalf("create database %s: %v", name, err)
	}
	t.Logf("using Cloud SQL database %s", name)
	t.Cleanup(func() {
		defer db.Close()
		if _, err := db.Exec("DROP DATABASE `" + name + "`"); err != nil {
			t.Errorf("drop database %s: %v", name, err)
		}
	})
	return server + name
}

// NewDB makes a connection to a testing database, either sqlite3 or
// Cloud SQL depending on the -cloud flag. The database is closed when
// the test finishes.
func NewDB(t *testing.T) *store.DB {
	driverName, dataSourceName := "sqlite3", ":memory:"
	if *cloud {
		driverName, dataSourceName = "mysql", cloudDB(t)
	}
	d, err := store.OpenSQL(driverName, dataSourceName)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	// Registered after cloudDB's cleanup, so it runs first.
	t.Cleanup(func() { d.Close() })

	// Make sure the database really is empty.
	sweeps, err := d.CountSweeps(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sweeps != 0 {
		t.Fatalf("found %d row(s) in Sweeps, want 0", sweeps)
	}
	return d
}
