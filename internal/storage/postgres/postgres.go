package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"esco_tender/internal/models/bids"
	"esco_tender/internal/models/money"
	"esco_tender/internal/models/tender"
	"esco_tender/internal/storage"

	"github.com/lib/pq"
)

type Storage struct {
	db *sql.DB
}

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`
	CREATE TABLE IF NOT EXISTS tender (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		title VARCHAR(500) NOT NULL,
		status VARCHAR(50) NOT NULL,
		procurementMethodType VARCHAR(50) NOT NULL,
		valueAmount NUMERIC NOT NULL,
		valueCurrency CHAR(3) NOT NULL,
		valueAddedTaxIncluded BOOLEAN NOT NULL,
		createdAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS lot (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		position BIGSERIAL,
		tenderId UUID REFERENCES tender(id) ON DELETE CASCADE,
		title VARCHAR(500) NOT NULL,
		status VARCHAR(50),
		valueAmount NUMERIC NOT NULL,
		valueCurrency CHAR(3) NOT NULL,
		valueAddedTaxIncluded BOOLEAN NOT NULL
	);
	`,
	// the bid value is derived on read and never stored
	`
	CREATE TABLE IF NOT EXISTS bid (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		position BIGSERIAL,
		tenderId UUID REFERENCES tender(id) ON DELETE CASCADE,
		status VARCHAR(50),
		date TIMESTAMP,
		yearlyPayments DOUBLE PRECISION NOT NULL,
		annualCostsReductionAmount NUMERIC NOT NULL,
		annualCostsReductionCurrency CHAR(3) NOT NULL,
		annualCostsReductionVAT BOOLEAN NOT NULL,
		contractDuration INT NOT NULL,
		details JSONB NOT NULL DEFAULT '{}',
		version INT DEFAULT 1
	);
	`,
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, query := range schema {
		stmt, err := db.Prepare(query)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		_, err = stmt.Exec()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Ping() error {
	return s.db.Ping()
}

// translate maps driver errors onto storage sentinels.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "foreign_key_violation", "invalid_text_representation":
			return fmt.Errorf("%w: %s", storage.ErrNotFound, pqErr.Message)
		case "check_violation", "not_null_violation", "string_data_right_truncation":
			return fmt.Errorf("%w: %s", storage.ErrBadRequest, pqErr.Message)
		}
	}
	return err
}

func (s *Storage) SaveTender(rec tender.Record) (tender.Record, error) {
	const op = "storage.postgres.SaveTender"

	tx, err := s.db.Begin()
	if err != nil {
		return tender.Record{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	result := rec
	err = tx.QueryRow(`
	INSERT INTO tender(title, status, procurementMethodType, valueAmount, valueCurrency, valueAddedTaxIncluded)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, createdAt
	`,
		rec.Title,
		rec.Status,
		rec.Method,
		rec.Value.Amount,
		rec.Value.Currency,
		rec.Value.ValueAddedTaxIncluded,
	).Scan(&result.Id, &result.CreatedAt)
	if err != nil {
		return tender.Record{}, fmt.Errorf("%s: %w", op, translate(err))
	}

	stmt, err := tx.Prepare(`
	INSERT INTO lot(tenderId, title, status, valueAmount, valueCurrency, valueAddedTaxIncluded)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
	`)
	if err != nil {
		return tender.Record{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	result.Lots = make([]tender.Lot, len(rec.Lots))
	for i, l := range rec.Lots {
		err = stmt.QueryRow(result.Id, l.Title, l.Status, l.Value.Amount, l.Value.Currency, l.Value.ValueAddedTaxIncluded).Scan(&l.Id)
		if err != nil {
			return tender.Record{}, fmt.Errorf("%s: %w", op, translate(err))
		}
		result.Lots[i] = l
	}
	if len(result.Lots) == 0 {
		result.Lots = nil
	}

	if err := tx.Commit(); err != nil {
		return tender.Record{}, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func (s *Storage) ReadTender(tenderId string) (tender.Record, error) {
	const op = "storage.postgres.ReadTender"
	var rec tender.Record

	stmt, err := s.db.Prepare(`
	SELECT id, title, status, procurementMethodType, valueAmount, valueCurrency, valueAddedTaxIncluded, createdAt
	FROM tender
	WHERE id = $1
	`)
	if err != nil {
		return tender.Record{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	err = stmt.QueryRow(tenderId).Scan(
		&rec.Id, &rec.Title, &rec.Status, &rec.Method,
		&rec.Value.Amount, &rec.Value.Currency, &rec.Value.ValueAddedTaxIncluded,
		&rec.CreatedAt,
	)
	if err != nil {
		return tender.Record{}, fmt.Errorf("%s: %w", op, translate(err))
	}

	rows, err := s.db.Query(`
	SELECT id, title, COALESCE(status, ''), valueAmount, valueCurrency, valueAddedTaxIncluded
	FROM lot
	WHERE tenderId = $1
	ORDER BY position
	`, tenderId)
	if err != nil {
		return tender.Record{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l tender.Lot
		err := rows.Scan(&l.Id, &l.Title, &l.Status, &l.Value.Amount, &l.Value.Currency, &l.Value.ValueAddedTaxIncluded)
		if err != nil {
			return tender.Record{}, fmt.Errorf("%s: %w", op, err)
		}
		rec.Lots = append(rec.Lots, l)
	}
	if err := rows.Err(); err != nil {
		return tender.Record{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// columns of bids.Bid that live outside the details document
var bidColumns = []string{"id", "date", "status", "yearlyPayments", "annualCostsReduction", "contractDuration"}

func bidDetails(bid *bids.Bid) ([]byte, error) {
	raw, err := json.Marshal(bid)
	if err != nil {
		return nil, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	for _, c := range bidColumns {
		delete(doc, c)
	}
	return json.Marshal(doc)
}

func bidTerms(bid *bids.Bid) (float64, money.Value, int, error) {
	if bid.YearlyPayments == nil || bid.AnnualCostsReduction == nil || bid.ContractDuration == nil {
		return 0, money.Value{}, 0, fmt.Errorf("%w: bid terms are incomplete", storage.ErrBadRequest)
	}
	return *bid.YearlyPayments, *bid.AnnualCostsReduction, *bid.ContractDuration, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBid(row scanner) (*bids.Bid, error) {
	var (
		bid       bids.Bid
		date      sql.NullTime
		status    sql.NullString
		share     float64
		reduction money.Value
		years     int
		details   []byte
	)

	err := row.Scan(
		&bid.Id, &bid.TenderId, &status, &date,
		&share, &reduction.Amount, &reduction.Currency, &reduction.ValueAddedTaxIncluded,
		&years, &details, &bid.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(details, &bid); err != nil {
		return nil, err
	}
	if date.Valid {
		t := date.Time.UTC()
		bid.Date = &t
	}
	bid.Status = bids.Status(status.String)
	bid.YearlyPayments = &share
	bid.AnnualCostsReduction = &reduction
	bid.ContractDuration = &years

	return &bid, nil
}

const selectBid = `
	SELECT id, tenderId, status, date,
		yearlyPayments, annualCostsReductionAmount, annualCostsReductionCurrency, annualCostsReductionVAT,
		contractDuration, details, version
	FROM bid
`

func (s *Storage) SaveBid(bid *bids.Bid) (*bids.Bid, error) {
	const op = "storage.postgres.SaveBid"

	share, reduction, years, err := bidTerms(bid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	details, err := bidDetails(bid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stmt, err := s.db.Prepare(`
	INSERT INTO bid(tenderId, status, date, yearlyPayments, annualCostsReductionAmount,
		annualCostsReductionCurrency, annualCostsReductionVAT, contractDuration, details)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	var id string
	err = stmt.QueryRow(
		bid.TenderId, bid.Status, bid.Date,
		share, reduction.Amount, reduction.Currency, reduction.ValueAddedTaxIncluded,
		years, string(details),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	return s.ReadBid(bid.TenderId, id)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

func readBid(q querier, tenderId, bidId string) (*bids.Bid, error) {
	row := q.QueryRow(selectBid+`WHERE id = $1 AND tenderId = $2`, bidId, tenderId)
	bid, err := scanBid(row)
	if err != nil {
		return nil, translate(err)
	}
	return bid, nil
}

func (s *Storage) ReadBid(tenderId, bidId string) (*bids.Bid, error) {
	const op = "storage.postgres.ReadBid"

	bid, err := readBid(s.db, tenderId, bidId)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bid, nil
}

func (s *Storage) ReadTenderBids(tenderId string) ([]*bids.Bid, error) {
	const op = "storage.postgres.ReadTenderBids"
	result := make([]*bids.Bid, 0)

	if _, err := s.ReadTender(tenderId); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.db.Query(selectBid+`WHERE tenderId = $1 ORDER BY position`, tenderId)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	defer rows.Close()

	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

const updateBidQuery = `
	UPDATE bid
	SET status = $1, date = $2, yearlyPayments = $3, annualCostsReductionAmount = $4,
		annualCostsReductionCurrency = $5, annualCostsReductionVAT = $6, contractDuration = $7,
		details = $8, version = version + 1
	WHERE id = $9 AND tenderId = $10 AND version = $11
`

// updateBid writes bid if its version still matches and reads it back.
func updateBid(q querier, bid *bids.Bid) (*bids.Bid, error) {
	share, reduction, years, err := bidTerms(bid)
	if err != nil {
		return nil, err
	}
	details, err := bidDetails(bid)
	if err != nil {
		return nil, err
	}

	res, err := q.Exec(updateBidQuery,
		bid.Status, bid.Date, share, reduction.Amount, reduction.Currency, reduction.ValueAddedTaxIncluded,
		years, string(details), bid.Id, bid.TenderId, bid.Version,
	)
	if err != nil {
		return nil, translate(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// either the bid is gone or someone else bumped the version
		if _, err := readBid(q, bid.TenderId, bid.Id); err != nil {
			return nil, err
		}
		return nil, storage.ErrConflict
	}

	return readBid(q, bid.TenderId, bid.Id)
}

func (s *Storage) UpdateBid(bid *bids.Bid) (*bids.Bid, error) {
	const op = "storage.postgres.UpdateBid"

	updated, err := updateBid(s.db, bid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (s *Storage) UpdateBids(bs []*bids.Bid) ([]*bids.Bid, error) {
	const op = "storage.postgres.UpdateBids"

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	result := make([]*bids.Bid, 0, len(bs))
	for _, bid := range bs {
		updated, err := updateBid(tx, bid)
		if err != nil {
			return nil, fmt.Errorf("%s: bid %s: %w", op, bid.Id, err)
		}
		result = append(result, updated)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
