package model

import (
	"database/sql"
	"time"

	"github.com/username/coinledger/backend/src/models"
)

// ListMessages returns the most recent feed posts across all users,
// newest first, joined with the author's username.
func ListMessages(db *sql.DB, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT m.id, m.user_id, u.username, m.body, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.user_id
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Username, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func InsertMessage(db *sql.DB, m *models.Message) error {
	m.CreatedAt = time.Now()
	res, err := db.Exec(`INSERT INTO messages (user_id, body, created_at) VALUES (?, ?, ?)`,
		m.UserID, m.Body, m.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func DeleteMessage(db *sql.DB, userID, messageID int64) error {
	_, err := db.Exec(`DELETE FROM messages WHERE id = ? AND user_id = ?`, messageID, userID)
	return err
}
