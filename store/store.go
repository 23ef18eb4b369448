// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store exports evaluation tables to a SQL database, so that
// sweeps can be compared across runs of the evaluation.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"text/template"

	"github.com/seqan/raptor/evaltab"
)

// DB is a database of evaluated sweeps. It's safe for concurrent use
// by multiple goroutines.
type DB struct {
	sql *sql.DB

	insertSweep *sql.Stmt
	insertCell  *sql.Stmt
}

// Open opens the database named by target, written "driver:dsn", for
// example "sqlite3:runs.db".
func Open(target string) (*DB, error) {
	driverName, dataSourceName, ok := strings.Cut(target, ":")
	if !ok || driverName == "" {
		return nil, fmt.Errorf("bad database %q (want driver:dsn)", target)
	}
	return OpenSQL(driverName, dataSourceName)
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.prepareStatements(driverName); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a
// connection to driverName. It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Sweeps (
	SweepID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Variant VARCHAR(255),
	Dir VARCHAR(4096)
);
CREATE TABLE IF NOT EXISTS Cells (
	SweepID BIGINT UNSIGNED,
	RowID BIGINT UNSIGNED,
	ColumnID BIGINT UNSIGNED,
	Label VARCHAR(255),
	Phase VARCHAR(255),
	Metric VARCHAR(255),
	Value VARCHAR(255),
	Sentinel BOOLEAN,
	PRIMARY KEY (SweepID, RowID, ColumnID),
{{if not .sqlite3}}
	Index (Metric(100)),
{{end}}
	FOREIGN KEY (SweepID) REFERENCES Sweeps(SweepID) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS CellsMetric ON Cells(Metric);
{{end}}
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements(driverName string) error {
	var err error
	db.insertSweep, err = db.sql.Prepare("INSERT INTO Sweeps(Variant, Dir) VALUES (?, ?)")
	if err != nil {
		return err
	}
	db.insertCell, err = db.sql.Prepare("INSERT INTO Cells(SweepID, RowID, ColumnID, Label, Phase, Metric, Value, Sentinel) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	return nil
}

// A Sweep is one evaluated table in the database.
type Sweep struct {
	// ID is the primary key of the sweep.
	ID int64

	// rowid is the index of the next row to insert.
	rowid int64
	db    *DB
}

// NewSweep records a new sweep of variant, whose runs were read from
// dir.
func (db *DB) NewSweep(ctx context.Context, variant, dir string) (*Sweep, error) {
	res, err := db.insertSweep.ExecContext(ctx, variant, dir)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Sweep{ID: id, db: db}, nil
}

// InsertRow inserts the cells of row, whose columns are cols. All
// cells are inserted or none are.
func (s *Sweep) InsertRow(ctx context.Context, row evaltab.Row, cols []evaltab.Column) (err error) {
	if len(row.Cells) != len(cols) {
		return fmt.Errorf("row %s has %d cells, want %d", row.Label, len(row.Cells), len(cols))
	}
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	stmt := tx.StmtContext(ctx, s.db.insertCell)
	for i, c := range cols {
		v := row.Cells[i]
		if _, err = stmt.ExecContext(ctx, s.ID, s.rowid, i, row.Label, c.Phase, c.Metric, v, v == c.Sentinel); err != nil {
			return err
		}
	}
	s.rowid++
	return nil
}

// InsertTable inserts every row of t.
func (s *Sweep) InsertTable(ctx context.Context, t *evaltab.Table) error {
	for _, r := range t.Rows {
		if err := s.InsertRow(ctx, r, t.Columns); err != nil {
			return err
		}
	}
	return nil
}

// CountSweeps returns the number of sweeps in the database.
func (db *DB) CountSweeps(ctx context.Context) (int, error) {
	var n int
	err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM Sweeps").Scan(&n)
	return n, err
}

// A Cell is one stored table cell.
type Cell struct {
	RowID    int64
	Label    string
	Phase    string
	Metric   string
	Value    string
	Sentinel bool // Value is the column's sentinel
}

// Cells returns the cells of sweep id in table order.
func (db *DB) Cells(ctx context.Context, id int64) ([]Cell, error) {
	rows, err := db.sql.QueryContext(ctx, "SELECT RowID, Label, Phase, Metric, Value, Sentinel FROM Cells WHERE SweepID = ? ORDER BY RowID, ColumnID", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cells []Cell
	for rows.Next() {
		var c Cell
		if err := rows.Scan(&c.RowID, &c.Label, &c.Phase, &c.Metric, &c.Value, &c.Sentinel); err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	for _, stmt := range []*sql.Stmt{db.insertSweep, db.insertCell} {
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return db.sql.Close()
}
