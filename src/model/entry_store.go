package model

import (
	"database/sql"
	"errors"
	"time"

	"github.com/username/coinledger/backend/src/models"
)

var ErrEntryNotFound = errors.New("entry not found")

const entryColumns = `id, user_id, instrument, entry_price, exit_price, quantity, amount, kind, side, note, attachment_ref, pinned, created_at, updated_at`

func scanEntry(scanner interface{ Scan(...any) error }) (models.LedgerEntry, error) {
	var e models.LedgerEntry
	var side, note, attachmentRef sql.NullString
	err := scanner.Scan(
		&e.ID, &e.UserID, &e.Instrument, &e.EntryPrice, &e.ExitPrice,
		&e.Quantity, &e.Amount, &e.Kind, &side, &note, &attachmentRef,
		&e.Pinned, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return models.LedgerEntry{}, err
	}
	e.Side = models.TradeSide(side.String)
	e.Note = note.String
	e.AttachmentRef = attachmentRef.String
	return e, nil
}

// ListEntries returns all entries for the owner, newest first. The
// filter pipeline and the aggregator both expect this ordering.
func ListEntries(db *sql.DB, userID int64) ([]models.LedgerEntry, error) {
	rows, err := db.Query(`SELECT `+entryColumns+` FROM entries WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func GetEntryByID(db *sql.DB, userID, entryID int64) (models.LedgerEntry, error) {
	row := db.QueryRow(`SELECT `+entryColumns+` FROM entries WHERE id = ? AND user_id = ?`, entryID, userID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LedgerEntry{}, ErrEntryNotFound
	}
	return e, err
}

// InsertEntry persists a new entry. The amount sign is normalized by
// kind before the write, never after.
func InsertEntry(db *sql.DB, e *models.LedgerEntry) error {
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	e.Amount = models.NormalizedAmount(e.Kind, e.Amount)

	res, err := db.Exec(`
		INSERT INTO entries (user_id, instrument, entry_price, exit_price, quantity, amount, kind, side, note, attachment_ref, pinned, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Instrument, e.EntryPrice, e.ExitPrice, e.Quantity, e.Amount,
		e.Kind, string(e.Side), e.Note, e.AttachmentRef, e.Pinned, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// UpdateEntry replaces the mutable fields of an existing entry. Pin
// state is toggled separately and survives edits.
func UpdateEntry(db *sql.DB, e *models.LedgerEntry) error {
	e.UpdatedAt = time.Now()
	e.Amount = models.NormalizedAmount(e.Kind, e.Amount)

	res, err := db.Exec(`
		UPDATE entries
		SET instrument = ?, entry_price = ?, exit_price = ?, quantity = ?, amount = ?, kind = ?, side = ?, note = ?, attachment_ref = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		e.Instrument, e.EntryPrice, e.ExitPrice, e.Quantity, e.Amount,
		e.Kind, string(e.Side), e.Note, e.AttachmentRef, e.UpdatedAt,
		e.ID, e.UserID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func SetEntryPinned(db *sql.DB, userID, entryID int64, pinned bool) error {
	res, err := db.Exec(`UPDATE entries SET pinned = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		pinned, time.Now(), entryID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func DeleteEntry(db *sql.DB, userID, entryID int64) error {
	res, err := db.Exec(`DELETE FROM entries WHERE id = ? AND user_id = ?`, entryID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func DeleteAllEntries(db *sql.DB, userID int64) error {
	_, err := db.Exec(`DELETE FROM entries WHERE user_id = ?`, userID)
	return err
}

// CountEntries reports whether the user has any data yet; the frontend
// uses it to decide between the dashboard and the onboarding screen.
func CountEntries(db *sql.DB, userID int64) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM entries WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}
