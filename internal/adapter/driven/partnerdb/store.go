package partnerdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
	"github.com/ericfisherdev/guardiansync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PartnerStore = (*Store)(nil)

// columns of the destination table, in insert order.
var columns = []string{
	"codigo",
	"descricao",
	"razao_social",
	"cnpj",
	"inscricao_estadual",
	"endereco",
	"complemento",
	"municipio",
	"est_codigo",
	"cep",
	"telefone",
	"data_insercao",
	"status",
}

// Store writes partner rows into the destination table.
type Store struct {
	db     *sql.DB
	driver string
	table  string
}

// NewStore wraps an open database handle. driver selects the placeholder style.
func NewStore(db *sql.DB, driver, table string) *Store {
	return &Store{db: db, driver: driver, table: table}
}

// InsertBatch inserts every row inside a single transaction. If any insert
// fails the transaction is rolled back and no codes are returned.
func (s *Store) InsertBatch(ctx context.Context, rows []model.PartnerRow) ([]int64, error) {
	if len(rows) == 0 {
		return []int64{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	stmt, err := tx.PrepareContext(ctx, buildInsertSQL(s.driver, s.table))
	if err != nil {
		return nil, fmt.Errorf("prepare insert into %s: %w", s.table, err)
	}
	defer stmt.Close()

	codes := make([]int64, 0, len(rows))
	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.Code, row.Description, row.CorporateName, row.TaxID,
			row.StateRegistration, row.Address, row.Complement, row.Municipality,
			row.StateCode, row.PostalCode, row.Phone, row.InsertedAt.UTC(), row.Status,
		); err != nil {
			return nil, fmt.Errorf("insert partner %d (row %d of %d): %w", row.Code, i+1, len(rows), err)
		}
		codes = append(codes, row.Code)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %d partner rows: %w", len(rows), err)
	}

	return codes, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// buildInsertSQL returns the single-row INSERT for table using the
// placeholder syntax of driver.
func buildInsertSQL(driver, table string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		switch driver {
		case DriverPostgres:
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		case DriverSQLServer:
			placeholders[i] = fmt.Sprintf("@p%d", i+1)
		default:
			placeholders[i] = "?"
		}
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
}
