package database

import (
	"fmt"
)

// createSchema creates the reference-table schema
func (d *SQLiteDatabase) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS buffs (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			command TEXT NOT NULL,
			cast_message TEXT DEFAULT '',
			expire_message TEXT DEFAULT '',
			duration_secs INTEGER DEFAULT 0,
			cost INTEGER DEFAULT 0,
			self_policy INTEGER DEFAULT 0,
			party_policy INTEGER DEFAULT 0,
			auto_recast BOOLEAN DEFAULT FALSE,
			recast_buffer_secs INTEGER DEFAULT 0,
			priority INTEGER DEFAULT 100
		)`,

		`CREATE TABLE IF NOT EXISTS heals (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			command TEXT NOT NULL,
			cost INTEGER DEFAULT 0,
			threshold_pct INTEGER DEFAULT 50,
			target_party BOOLEAN DEFAULT FALSE,
			priority INTEGER DEFAULT 100
		)`,

		`CREATE TABLE IF NOT EXISTS cures (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			command TEXT NOT NULL,
			cost INTEGER DEFAULT 0,
			ailment_id INTEGER NOT NULL,
			priority INTEGER DEFAULT 100
		)`,

		`CREATE TABLE IF NOT EXISTS ailments (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			detect_message TEXT DEFAULT '',
			cured_message TEXT DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS monsters (
			name TEXT PRIMARY KEY,
			relation INTEGER DEFAULT 0,
			tier INTEGER DEFAULT 2
		)`,

		`CREATE TABLE IF NOT EXISTS players (
			name TEXT PRIMARY KEY,
			relation INTEGER DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS class_roles (
			class TEXT PRIMARY KEY,
			role INTEGER DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS combat_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			attack_command TEXT DEFAULT '',
			attack_spell TEXT DEFAULT '',
			attack_spell_cost INTEGER DEFAULT 0,
			attack_spell_min_pct INTEGER DEFAULT 0,
			casts_per_target INTEGER DEFAULT 0,
			pre_attack_spell TEXT DEFAULT '',
			pre_attack_spell_cost INTEGER DEFAULT 0,
			multi_attack_command TEXT DEFAULT '',
			multi_attack_min_targets INTEGER DEFAULT 2
		)`,
	}

	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
