package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"watopic/internal/migrations"
	"watopic/internal/models"
	"watopic/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the sqlite-backed store for conversation mappings, identities
// and settings. Message pairs are deliberately not persisted here.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(migrations.GetInitialSchema()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	enc, err := NewEncryptor()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: enc}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Conversation mapping operations

func (d *Database) SaveMapping(ctx context.Context, m *models.ConversationMapping) error {
	encJID, err := d.encryptor.EncryptForLookupIfEnabled(m.ChatJID)
	if err != nil {
		return fmt.Errorf("failed to encrypt chat JID: %w", err)
	}

	query := `
		INSERT INTO conversation_mappings (
			chat_jid, topic_id, kind, display_name, active, created_at, last_activity_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_jid) DO UPDATE SET
			topic_id = excluded.topic_id,
			display_name = excluded.display_name,
			active = excluded.active,
			last_activity_at = excluded.last_activity_at
	`

	_, err = d.db.ExecContext(ctx, query,
		encJID, m.TopicID, m.Kind, m.DisplayName, m.Active, m.CreatedAt, m.LastActivityAt)
	if err != nil {
		return fmt.Errorf("failed to save conversation mapping: %w", err)
	}

	return nil
}

func (d *Database) GetMapping(ctx context.Context, chatJID string) (*models.ConversationMapping, error) {
	encJID, err := d.encryptor.EncryptForLookupIfEnabled(chatJID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt chat JID: %w", err)
	}

	query := `
		SELECT id, chat_jid, topic_id, kind, display_name, active, created_at, last_activity_at
		FROM conversation_mappings
		WHERE chat_jid = ?
	`

	m, err := d.scanMapping(d.db.QueryRowContext(ctx, query, encJID))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (d *Database) GetMappingByTopic(ctx context.Context, topicID int64) (*models.ConversationMapping, error) {
	query := `
		SELECT id, chat_jid, topic_id, kind, display_name, active, created_at, last_activity_at
		FROM conversation_mappings
		WHERE topic_id = ?
	`

	return d.scanMapping(d.db.QueryRowContext(ctx, query, topicID))
}

func (d *Database) ListMappings(ctx context.Context) ([]*models.ConversationMapping, error) {
	query := `
		SELECT id, chat_jid, topic_id, kind, display_name, active, created_at, last_activity_at
		FROM conversation_mappings
		ORDER BY last_activity_at DESC
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation mappings: %w", err)
	}
	defer rows.Close()

	var out []*models.ConversationMapping
	for rows.Next() {
		m := &models.ConversationMapping{}
		var encJID string
		if err := rows.Scan(&m.ID, &encJID, &m.TopicID, &m.Kind, &m.DisplayName, &m.Active, &m.CreatedAt, &m.LastActivityAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation mapping: %w", err)
		}
		m.ChatJID, err = d.encryptor.DecryptIfEnabled(encJID)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt chat JID: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *Database) UpdateMappingName(ctx context.Context, chatJID, displayName string) error {
	encJID, err := d.encryptor.EncryptForLookupIfEnabled(chatJID)
	if err != nil {
		return fmt.Errorf("failed to encrypt chat JID: %w", err)
	}

	_, err = d.db.ExecContext(ctx,
		`UPDATE conversation_mappings SET display_name = ? WHERE chat_jid = ?`,
		displayName, encJID)
	if err != nil {
		return fmt.Errorf("failed to update mapping name: %w", err)
	}
	return nil
}

func (d *Database) TouchMapping(ctx context.Context, chatJID string) error {
	encJID, err := d.encryptor.EncryptForLookupIfEnabled(chatJID)
	if err != nil {
		return fmt.Errorf("failed to encrypt chat JID: %w", err)
	}

	_, err = d.db.ExecContext(ctx,
		`UPDATE conversation_mappings SET last_activity_at = CURRENT_TIMESTAMP WHERE chat_jid = ?`,
		encJID)
	if err != nil {
		return fmt.Errorf("failed to touch mapping: %w", err)
	}
	return nil
}

func (d *Database) DeleteMapping(ctx context.Context, chatJID string) error {
	encJID, err := d.encryptor.EncryptForLookupIfEnabled(chatJID)
	if err != nil {
		return fmt.Errorf("failed to encrypt chat JID: %w", err)
	}

	_, err = d.db.ExecContext(ctx,
		`DELETE FROM conversation_mappings WHERE chat_jid = ?`, encJID)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	return nil
}

func (d *Database) scanMapping(row *sql.Row) (*models.ConversationMapping, error) {
	m := &models.ConversationMapping{}
	var encJID string

	err := row.Scan(&m.ID, &encJID, &m.TopicID, &m.Kind, &m.DisplayName, &m.Active, &m.CreatedAt, &m.LastActivityAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation mapping: %w", err)
	}

	m.ChatJID, err = d.encryptor.DecryptIfEnabled(encJID)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt chat JID: %w", err)
	}

	return m, nil
}

// Identity operations

func (d *Database) SaveIdentity(ctx context.Context, id *models.Identity) error {
	encJID, err := d.encryptor.EncryptForLookupIfEnabled(id.JID)
	if err != nil {
		return fmt.Errorf("failed to encrypt JID: %w", err)
	}
	encPhone, err := d.encryptor.EncryptIfEnabled(id.PhoneNumber)
	if err != nil {
		return fmt.Errorf("failed to encrypt phone number: %w", err)
	}

	query := `
		INSERT INTO identities (
			jid, display_name, name_source, phone_number, is_group, avatar_url,
			first_seen_at, last_seen_at, message_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(jid) DO UPDATE SET
			display_name = excluded.display_name,
			name_source = excluded.name_source,
			phone_number = excluded.phone_number,
			avatar_url = excluded.avatar_url,
			last_seen_at = excluded.last_seen_at,
			message_count = excluded.message_count
	`

	_, err = d.db.ExecContext(ctx, query,
		encJID, id.DisplayName, id.NameSource, encPhone, id.IsGroup, id.AvatarURL,
		id.FirstSeenAt, id.LastSeenAt, id.MessageCount)
	if err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}

	return nil
}

func (d *Database) GetIdentity(ctx context.Context, jid string) (*models.Identity, error) {
	encJID, err := d.encryptor.EncryptForLookupIfEnabled(jid)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt JID: %w", err)
	}

	query := `
		SELECT id, jid, display_name, name_source, phone_number, is_group, avatar_url,
		       first_seen_at, last_seen_at, message_count
		FROM identities
		WHERE jid = ?
	`

	id := &models.Identity{}
	var encStoredJID, encPhone string
	err = d.db.QueryRowContext(ctx, query, encJID).Scan(
		&id.ID, &encStoredJID, &id.DisplayName, &id.NameSource, &encPhone,
		&id.IsGroup, &id.AvatarURL, &id.FirstSeenAt, &id.LastSeenAt, &id.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	id.JID, err = d.encryptor.DecryptIfEnabled(encStoredJID)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt JID: %w", err)
	}
	id.PhoneNumber, err = d.encryptor.DecryptIfEnabled(encPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt phone number: %w", err)
	}

	return id, nil
}

// FindIdentitiesByName does a case-insensitive substring match on display
// names. Used by the find-contact admin command; with encryption enabled
// names are stored encrypted and the scan happens after decryption.
func (d *Database) FindIdentitiesByName(ctx context.Context, fragment string) ([]*models.Identity, error) {
	query := `
		SELECT id, jid, display_name, name_source, phone_number, is_group, avatar_url,
		       first_seen_at, last_seen_at, message_count
		FROM identities
		WHERE display_name LIKE '%' || ? || '%' COLLATE NOCASE
		ORDER BY message_count DESC
		LIMIT 10
	`

	rows, err := d.db.QueryContext(ctx, query, fragment)
	if err != nil {
		return nil, fmt.Errorf("failed to search identities: %w", err)
	}
	defer rows.Close()

	var out []*models.Identity
	for rows.Next() {
		id := &models.Identity{}
		var encJID, encPhone string
		if err := rows.Scan(&id.ID, &encJID, &id.DisplayName, &id.NameSource, &encPhone,
			&id.IsGroup, &id.AvatarURL, &id.FirstSeenAt, &id.LastSeenAt, &id.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		id.JID, err = d.encryptor.DecryptIfEnabled(encJID)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt JID: %w", err)
		}
		id.PhoneNumber, err = d.encryptor.DecryptIfEnabled(encPhone)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt phone number: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Settings operations

func (d *Database) GetSetting(ctx context.Context, key string) (*models.SettingFlag, error) {
	query := `SELECT key, value, description, updated_at FROM settings WHERE key = ?`

	flag := &models.SettingFlag{}
	err := d.db.QueryRowContext(ctx, query, key).Scan(&flag.Key, &flag.Value, &flag.Description, &flag.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return flag, nil
}

func (d *Database) SetSetting(ctx context.Context, key, value, description string) error {
	query := `
		INSERT INTO settings (key, value, description, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := d.db.ExecContext(ctx, query, key, value, description)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// CleanupInactiveMappings marks mappings with no activity inside the
// retention window as inactive. Mappings are never deleted automatically.
func (d *Database) CleanupInactiveMappings(retentionDays int) error {
	query := `
		UPDATE conversation_mappings
		SET active = 0
		WHERE last_activity_at < datetime('now', '-' || ? || ' days')
	`

	if _, err := d.db.Exec(query, retentionDays); err != nil {
		return fmt.Errorf("failed to cleanup inactive mappings: %w", err)
	}
	return nil
}
