// Package sqlite provides SQLite database writing for peptide indexes and search results
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
	"github.com/ChrisMcGann/FragIndex/pkg/search"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// Date format for HeaderTable and RunTable (ISO 8601)
	dateFormat = time.RFC3339

	schemaVersion = 1
)

// Writer handles writing index contents and matches to SQLite database files
type Writer struct {
	db          *sql.DB
	outputPath  string
	runID       string
	proteinStmt *sql.Stmt
	peptideStmt *sql.Stmt
	matchStmt   *sql.Stmt
}

// NewWriter creates a new SQLite writer and starts a run with a fresh id
func NewWriter(outputPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		runID:      uuid.New().String(),
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// RunID returns the id rows written by this writer are tagged with
func (w *Writer) RunID() string {
	return w.runID
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS RunTable (
		RunId TEXT PRIMARY KEY,
		CreationDate TEXT,
		Config TEXT,
		Stats TEXT
	);

	CREATE TABLE IF NOT EXISTS ProteinTable (
		RunId TEXT REFERENCES RunTable(RunId),
		ProteinIndex INTEGER,
		Identifier TEXT,
		Description TEXT,
		Sequence TEXT,
		PRIMARY KEY (RunId, ProteinIndex)
	);

	CREATE TABLE IF NOT EXISTS PeptideTable (
		RunId TEXT REFERENCES RunTable(RunId),
		PeptideIndex INTEGER,
		Sequence TEXT,
		ModifiedSequence TEXT,
		ModString TEXT,
		ProteinIndex INTEGER,
		Start INTEGER,
		ModificationIndex INTEGER,
		MZ DOUBLE,
		blobFragments BLOB,
		PRIMARY KEY (RunId, PeptideIndex)
	);

	CREATE TABLE IF NOT EXISTS MatchTable (
		RunId TEXT REFERENCES RunTable(RunId),
		SpectrumIndex INTEGER,
		SpectrumTitle TEXT,
		PrecursorMH DOUBLE,
		Rank INTEGER,
		PeptideIndex INTEGER,
		MatchedPeaks INTEGER,
		PrecursorError DOUBLE
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		LastModifiedDate TEXT,
		Description TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	_, err = w.db.Exec(`INSERT INTO RunTable (RunId, CreationDate) VALUES (?, ?)`,
		w.runID, time.Now().UTC().Format(dateFormat))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.proteinStmt, err = w.db.Prepare(`
		INSERT INTO ProteinTable (RunId, ProteinIndex, Identifier, Description, Sequence)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare protein statement: %w", err)
	}

	w.peptideStmt, err = w.db.Prepare(`
		INSERT INTO PeptideTable (
			RunId, PeptideIndex, Sequence, ModifiedSequence, ModString,
			ProteinIndex, Start, ModificationIndex, MZ, blobFragments
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare peptide statement: %w", err)
	}

	w.matchStmt, err = w.db.Prepare(`
		INSERT INTO MatchTable (
			RunId, SpectrumIndex, SpectrumTitle, PrecursorMH, Rank,
			PeptideIndex, MatchedPeaks, PrecursorError
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare match statement: %w", err)
	}

	return nil
}

// batch runs fn inside a transaction, committing on success
func (w *Writer) batch(fn func(tx *sql.Tx) error) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// WriteConfig stores the run configuration as JSON
func (w *Writer) WriteConfig(config interface{}) error {
	return w.writeRunJSON("Config", config)
}

// WriteStats stores the run statistics as JSON
func (w *Writer) WriteStats(stats interface{}) error {
	return w.writeRunJSON("Stats", stats)
}

func (w *Writer) writeRunJSON(column string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", column, err)
	}
	_, err = w.db.Exec(`UPDATE RunTable SET `+column+` = ? WHERE RunId = ?`, string(data), w.runID)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", column, err)
	}
	return nil
}

// WriteProteins writes the protein database, indexed by position
func (w *Writer) WriteProteins(proteins []core.Protein) error {
	return w.batch(func(tx *sql.Tx) error {
		stmt := tx.Stmt(w.proteinStmt)
		for i, p := range proteins {
			if _, err := stmt.Exec(w.runID, i, p.Identifier, p.Description, p.Sequence); err != nil {
				return fmt.Errorf("failed to insert protein %s: %w", p.Identifier, err)
			}
		}
		return nil
	})
}

// WritePeptides writes peptides, indexed by position, with the fragments
// returned by fragments encoded as a little-endian float64 blob
func (w *Writer) WritePeptides(peptides []core.Peptide, fragments func(*core.Peptide) []float64) error {
	return w.batch(func(tx *sql.Tx) error {
		stmt := tx.Stmt(w.peptideStmt)
		for i := range peptides {
			p := &peptides[i]

			var blob []byte
			if fragments != nil {
				blob = EncodeFloat64s(fragments(p))
			}

			_, err := stmt.Exec(
				w.runID,
				i,
				p.Sequence,
				p.ModifiedSequence(),
				p.ModString(),
				p.ProteinIndex,
				p.Start,
				p.ModificationIndex,
				p.MZ,
				blob,
			)
			if err != nil {
				return fmt.Errorf("failed to insert peptide %s: %w", p.Sequence, err)
			}
		}
		return nil
	})
}

// WriteMatches writes the ranked matches of every searched spectrum
func (w *Writer) WriteMatches(results []search.SpectrumResult) error {
	return w.batch(func(tx *sql.Tx) error {
		stmt := tx.Stmt(w.matchStmt)
		for _, res := range results {
			for rank, m := range res.Matches {
				_, err := stmt.Exec(
					w.runID,
					res.SpectrumIndex,
					res.Title,
					res.PrecursorMH,
					rank+1,
					m.PeptideIndex,
					m.MatchedPeaks,
					m.PrecursorError,
				)
				if err != nil {
					return fmt.Errorf("failed to insert match for %s: %w", res.Title, err)
				}
			}
		}
		return nil
	})
}

// EncodeFloat64s encodes values as a little-endian float64 blob
func EncodeFloat64s(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// DecodeFloat64s decodes a blob written by EncodeFloat64s
func DecodeFloat64s(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(buf))
	}
	values := make([]float64, len(buf)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return values, nil
}

// Finalize writes the header table and closes the database
func (w *Writer) Finalize() error {
	now := time.Now().UTC().Format(dateFormat)
	_, err := w.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, LastModifiedDate, Description)
		VALUES (?, ?, ?, ?)
	`, schemaVersion, now, now, "fragindex run "+w.runID)
	if err != nil {
		return fmt.Errorf("failed to insert header: %w", err)
	}

	// Close prepared statements
	for _, stmt := range []*sql.Stmt{w.proteinStmt, w.peptideStmt, w.matchStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}

	// Close database
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
