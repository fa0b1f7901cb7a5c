package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"wisp/internal/config"
	"wisp/internal/log"
)

// Database is the reference-table store. wisp only reads it; the editing
// front end owns writes, but Save methods exist so tools can seed tables.
type Database interface {
	Open(filename string) error
	Close() error

	LoadTables() (*config.Tables, error)

	SaveBuff(def config.BuffDef) error
	SaveHeal(def config.HealDef) error
	SaveCure(def config.CureDef) error
	SaveAilment(def config.AilmentDef) error
	SaveMonster(ref config.MonsterRef) error
	SavePlayer(ref config.PlayerRef) error
	SaveCombatSettings(cs config.CombatSettings) error
	SaveClassRole(class string, role config.Role) error

	IsOpen() bool
	GetDB() *sql.DB
}

// SQLiteDatabase implements Database using modernc.org/sqlite
type SQLiteDatabase struct {
	db       *sql.DB
	open     bool
	filename string
}

// New creates an unopened SQLite database instance
func New() *SQLiteDatabase {
	return &SQLiteDatabase{}
}

// Open opens (creating if necessary) the reference database
func (d *SQLiteDatabase) Open(filename string) error {
	if d.open {
		return fmt.Errorf("database already open")
	}

	db, err := sql.Open("sqlite", filename+"?_pragma=foreign_keys(1)")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	d.db = db
	d.filename = filename
	if err = d.createSchema(); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	d.open = true
	log.Info("reference database opened", "file", filename)
	return nil
}

// Close closes the database
func (d *SQLiteDatabase) Close() error {
	if !d.open {
		return nil
	}
	d.open = false
	return d.db.Close()
}

// IsOpen reports whether the database is usable
func (d *SQLiteDatabase) IsOpen() bool {
	return d.open
}

// GetDB exposes the underlying handle for advanced operations
func (d *SQLiteDatabase) GetDB() *sql.DB {
	return d.db
}

// LoadTables reads every reference table into memory. A missing or empty
// table degrades to an empty slice, never an error.
func (d *SQLiteDatabase) LoadTables() (*config.Tables, error) {
	if !d.open {
		return nil, fmt.Errorf("database not open")
	}

	tables := &config.Tables{ClassRoles: make(map[string]config.Role)}

	rows, err := d.db.Query(`SELECT id, name, command, cast_message, expire_message,
		duration_secs, cost, self_policy, party_policy, auto_recast, recast_buffer_secs, priority
		FROM buffs ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load buffs: %w", err)
	}
	for rows.Next() {
		var b config.BuffDef
		var durSecs, bufSecs int
		var auto bool
		if err := rows.Scan(&b.ID, &b.Name, &b.Command, &b.CastMessage, &b.ExpireMessage,
			&durSecs, &b.Cost, &b.SelfPolicy, &b.PartyPolicy, &auto, &bufSecs, &b.Priority); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan buff: %w", err)
		}
		b.Duration = time.Duration(durSecs) * time.Second
		b.RecastBuffer = time.Duration(bufSecs) * time.Second
		b.AutoRecast = auto
		tables.Buffs = append(tables.Buffs, b)
	}
	rows.Close()

	rows, err = d.db.Query(`SELECT id, name, command, cost, threshold_pct, target_party, priority
		FROM heals ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load heals: %w", err)
	}
	for rows.Next() {
		var h config.HealDef
		if err := rows.Scan(&h.ID, &h.Name, &h.Command, &h.Cost, &h.ThresholdPct, &h.TargetParty, &h.Priority); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan heal: %w", err)
		}
		tables.Heals = append(tables.Heals, h)
	}
	rows.Close()

	rows, err = d.db.Query(`SELECT id, name, command, cost, ailment_id, priority
		FROM cures ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load cures: %w", err)
	}
	for rows.Next() {
		var c config.CureDef
		if err := rows.Scan(&c.ID, &c.Name, &c.Command, &c.Cost, &c.AilmentID, &c.Priority); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan cure: %w", err)
		}
		tables.Cures = append(tables.Cures, c)
	}
	rows.Close()

	rows, err = d.db.Query(`SELECT id, name, detect_message, cured_message FROM ailments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load ailments: %w", err)
	}
	for rows.Next() {
		var a config.AilmentDef
		if err := rows.Scan(&a.ID, &a.Name, &a.DetectMessage, &a.CuredMessage); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan ailment: %w", err)
		}
		tables.Ailments = append(tables.Ailments, a)
	}
	rows.Close()

	rows, err = d.db.Query(`SELECT name, relation, tier FROM monsters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to load monsters: %w", err)
	}
	for rows.Next() {
		var m config.MonsterRef
		if err := rows.Scan(&m.Name, &m.Relation, &m.Tier); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan monster: %w", err)
		}
		tables.Monsters = append(tables.Monsters, m)
	}
	rows.Close()

	rows, err = d.db.Query(`SELECT name, relation FROM players ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}
	for rows.Next() {
		var p config.PlayerRef
		if err := rows.Scan(&p.Name, &p.Relation); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		tables.Players = append(tables.Players, p)
	}
	rows.Close()

	rows, err = d.db.Query(`SELECT class, role FROM class_roles`)
	if err != nil {
		return nil, fmt.Errorf("failed to load class roles: %w", err)
	}
	for rows.Next() {
		var class string
		var role config.Role
		if err := rows.Scan(&class, &role); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan class role: %w", err)
		}
		tables.ClassRoles[class] = role
	}
	rows.Close()

	err = d.db.QueryRow(`SELECT attack_command, attack_spell, attack_spell_cost,
		attack_spell_min_pct, casts_per_target, pre_attack_spell, pre_attack_spell_cost,
		multi_attack_command, multi_attack_min_targets FROM combat_settings WHERE id = 1`).Scan(
		&tables.Combat.AttackCommand, &tables.Combat.AttackSpell, &tables.Combat.AttackSpellCost,
		&tables.Combat.AttackSpellMinPct, &tables.Combat.CastsPerTarget,
		&tables.Combat.PreAttackSpell, &tables.Combat.PreAttackSpellCost,
		&tables.Combat.MultiAttackCommand, &tables.Combat.MultiAttackMinTargets)
	if err == sql.ErrNoRows {
		log.Warn("no combat settings row, combat disabled until configured")
	} else if err != nil {
		return nil, fmt.Errorf("failed to load combat settings: %w", err)
	}

	log.Info("reference tables loaded",
		"buffs", len(tables.Buffs), "heals", len(tables.Heals), "cures", len(tables.Cures),
		"ailments", len(tables.Ailments), "monsters", len(tables.Monsters), "players", len(tables.Players))
	return tables, nil
}

// SaveBuff inserts or replaces a buff definition
func (d *SQLiteDatabase) SaveBuff(b config.BuffDef) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO buffs
		(id, name, command, cast_message, expire_message, duration_secs, cost,
		 self_policy, party_policy, auto_recast, recast_buffer_secs, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Command, b.CastMessage, b.ExpireMessage,
		int(b.Duration.Seconds()), b.Cost, b.SelfPolicy, b.PartyPolicy,
		b.AutoRecast, int(b.RecastBuffer.Seconds()), b.Priority)
	if err != nil {
		return fmt.Errorf("failed to save buff %q: %w", b.Name, err)
	}
	return nil
}

// SaveHeal inserts or replaces a heal definition
func (d *SQLiteDatabase) SaveHeal(h config.HealDef) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO heals
		(id, name, command, cost, threshold_pct, target_party, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Name, h.Command, h.Cost, h.ThresholdPct, h.TargetParty, h.Priority)
	if err != nil {
		return fmt.Errorf("failed to save heal %q: %w", h.Name, err)
	}
	return nil
}

// SaveCure inserts or replaces a cure definition
func (d *SQLiteDatabase) SaveCure(c config.CureDef) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO cures
		(id, name, command, cost, ailment_id, priority)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Command, c.Cost, c.AilmentID, c.Priority)
	if err != nil {
		return fmt.Errorf("failed to save cure %q: %w", c.Name, err)
	}
	return nil
}

// SaveAilment inserts or replaces an ailment definition
func (d *SQLiteDatabase) SaveAilment(a config.AilmentDef) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO ailments
		(id, name, detect_message, cured_message) VALUES (?, ?, ?, ?)`,
		a.ID, a.Name, a.DetectMessage, a.CuredMessage)
	if err != nil {
		return fmt.Errorf("failed to save ailment %q: %w", a.Name, err)
	}
	return nil
}

// SaveMonster inserts or replaces a monster reference row
func (d *SQLiteDatabase) SaveMonster(m config.MonsterRef) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO monsters (name, relation, tier) VALUES (?, ?, ?)`,
		m.Name, m.Relation, m.Tier)
	if err != nil {
		return fmt.Errorf("failed to save monster %q: %w", m.Name, err)
	}
	return nil
}

// SavePlayer inserts or replaces a player reference row
func (d *SQLiteDatabase) SavePlayer(p config.PlayerRef) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO players (name, relation) VALUES (?, ?)`,
		p.Name, p.Relation)
	if err != nil {
		return fmt.Errorf("failed to save player %q: %w", p.Name, err)
	}
	return nil
}

// SaveCombatSettings writes the single combat settings row
func (d *SQLiteDatabase) SaveCombatSettings(cs config.CombatSettings) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO combat_settings
		(id, attack_command, attack_spell, attack_spell_cost, attack_spell_min_pct, casts_per_target,
		 pre_attack_spell, pre_attack_spell_cost, multi_attack_command, multi_attack_min_targets)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cs.AttackCommand, cs.AttackSpell, cs.AttackSpellCost, cs.AttackSpellMinPct, cs.CastsPerTarget,
		cs.PreAttackSpell, cs.PreAttackSpellCost, cs.MultiAttackCommand, cs.MultiAttackMinTargets)
	if err != nil {
		return fmt.Errorf("failed to save combat settings: %w", err)
	}
	return nil
}

// SaveClassRole inserts or replaces a class role mapping
func (d *SQLiteDatabase) SaveClassRole(class string, role config.Role) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO class_roles (class, role) VALUES (?, ?)`, class, role)
	if err != nil {
		return fmt.Errorf("failed to save class role %q: %w", class, err)
	}
	return nil
}
